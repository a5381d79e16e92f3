// Package mfpipe implements an in-process named pipe abstraction over an
// unreliable UDP datagram transport: two endpoints exchange typed Data
// objects and named Messages on independent channels, with best-effort
// delivery and no retransmission, flow control, or ordering across
// channels. Grounded on original_source/MFPipe.h/MFPipeImpl.{h,cpp}.
package mfpipe

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/vellum-io/mfpipe/internal/logger"
	"github.com/vellum-io/mfpipe/internal/transport"
)

// Mode reports whether a Pipe was created by binding and waiting for a
// peer (Listen) or by addressing a known peer up front (Connect).
type Mode int

const (
	Listen  Mode = Mode(transport.Listen)
	Connect Mode = Mode(transport.Connect)
)

var (
	errPipeClosed   = errors.New("mfpipe: pipe closed")
	errEncodeFailed = errors.New("mfpipe: record encode failed")
)

// Pipe is one endpoint of a named pipe. It owns a transport and the list
// of inbound records that arrived but haven't been matched by a Get or
// MessageGet yet. Grounded on MFPipeImpl, whose m_Records list and
// condition variable this mirrors with a record slice and a broadcast
// channel.
type Pipe struct {
	t        *transport.Transport
	mode     Mode
	mu       sync.Mutex
	notifyCh chan struct{}
	records  []*record
	closed   bool
	log      *slog.Logger
}

// Create binds uri and waits for a peer's first datagram to learn its
// address. Mirrors MFPipeImpl::PipeCreate.
func Create(uri string, opts ...Option) (*Pipe, error) {
	return newPipe(uri, transport.Listen, opts)
}

// Open addresses uri as the remote peer without waiting to hear from it
// first. Mirrors MFPipeImpl::PipeOpen.
func Open(uri string, opts ...Option) (*Pipe, error) {
	return newPipe(uri, transport.Connect, opts)
}

func newPipe(uri string, tmode transport.Mode, opts []Option) (*Pipe, error) {
	o := buildOptions(opts)

	p := &Pipe{
		mode:     Mode(tmode),
		notifyCh: make(chan struct{}),
		log:      logger.Logger().With("component", "pipe", "uri", uri),
	}

	var tOpts []transport.Option
	if o.mtu > 0 {
		tOpts = append(tOpts, transport.WithMTU(o.mtu))
	}

	t, err := transport.Open(uri, tmode, p.onNewMessage, tOpts...)
	if err != nil {
		p.log.Warn("pipe open failed", "error", err)
		return nil, err
	}
	p.t = t
	p.log.Info("pipe opened", "mode", p.mode, "transport_id", t.InstanceID())
	return p, nil
}

// broadcastLocked wakes every goroutine blocked in waitLocked. p.mu must
// be held.
func (p *Pipe) broadcastLocked() {
	close(p.notifyCh)
	p.notifyCh = make(chan struct{})
}

// Close stops the underlying transport and releases every record still
// buffered and unread. Safe to call more than once.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pending := p.records
	p.records = nil
	p.broadcastLocked()
	p.mu.Unlock()

	p.log.Info("closing pipe", "pending_records", len(pending))
	for _, rec := range pending {
		if rec.msg != nil {
			rec.msg.Release()
		}
	}

	err := p.t.Close()
	if err != nil {
		p.log.Warn("transport close returned an error", "error", err)
	}
	return err
}
