// Package transport implements the UDP datagram transport (spec components
// C6/C7): a single network worker goroutine that multiplexes send and
// receive on one socket, and the Transport/MsgCompose/MsgReceived types
// callers use to exchange whole messages without dealing in packets.
// Grounded on original_source/TransportUDP.h/.cpp and Transport.h.
package transport

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vellum-io/mfpipe/internal/addr"
	"github.com/vellum-io/mfpipe/internal/bufpool"
	"github.com/vellum-io/mfpipe/internal/codec"
	mferrors "github.com/vellum-io/mfpipe/internal/errors"
	"github.com/vellum-io/mfpipe/internal/logger"
	"github.com/vellum-io/mfpipe/internal/wire"
)

// Mode selects how Open binds the transport's socket.
type Mode int

const (
	// Listen binds to the resolved address and waits for a peer to send
	// first; the remote address is learned from the first inbound packet.
	Listen Mode = iota
	// Connect stores the resolved address as the remote peer up front; no
	// inbound packet needs to arrive before a send can go out.
	Connect
)

// OnMessage is invoked once per fully reassembled inbound message. The
// callback must call msg.Release() once it is done with the buffers (the
// dispatcher does so after copying the record out); Transport does not
// release on the callback's behalf.
type OnMessage func(t *Transport, msg *MsgReceived)

// Transport owns one UDP socket, its buffer pool, its send/receive queues,
// and the worker goroutine driving them. Grounded on TransportUDP.
type Transport struct {
	instanceID string
	mode       Mode
	conn       *net.UDPConn
	remoteAddr atomic.Pointer[net.UDPAddr]
	pool       *bufpool.Pool
	sendQ      *sendQueue
	recvQ      *recvQueue
	nextMsgID  atomic.Uint32
	onMessage  OnMessage
	mtu        int
	running    atomic.Bool
	wg         sync.WaitGroup
	log        *slog.Logger
}

// pollInterval bounds the network worker's read deadline and therefore its
// shutdown latency and effective caller-visible timeout granularity
// (spec.md §4.6/§5).
const pollInterval = 100 * time.Millisecond

// Option customizes a Transport at Open time.
type Option func(*Transport)

// WithMTU overrides the default packet MTU (bufpool.DefaultMTU). Values
// less than or equal to zero are ignored.
func WithMTU(mtu int) Option {
	return func(t *Transport) {
		if mtu > 0 {
			t.mtu = mtu
		}
	}
}

// Open resolves uri, binds or pre-addresses a UDP socket per mode, and
// starts the network worker. onMessage is invoked from the worker goroutine
// for every reassembled inbound message; it may be nil to discard inbound
// traffic (buffers are released immediately in that case).
func Open(uri string, mode Mode, onMessage OnMessage, opts ...Option) (*Transport, error) {
	resolved, err := addr.Resolve(uri)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		instanceID: uuid.NewString(),
		mode:       mode,
		pool:       bufpool.New(),
		sendQ:      newSendQueue(),
		recvQ:      newRecvQueue(),
		onMessage:  onMessage,
		mtu:        bufpool.DefaultMTU,
	}
	for _, opt := range opts {
		opt(t)
	}

	var conn *net.UDPConn
	switch mode {
	case Listen:
		conn, err = net.ListenUDP("udp4", resolved)
		if err != nil {
			return nil, mferrors.NewFatal("transport.open", err)
		}
	case Connect:
		conn, err = net.ListenUDP("udp4", &net.UDPAddr{})
		if err != nil {
			return nil, mferrors.NewFatal("transport.open", err)
		}
		t.remoteAddr.Store(resolved)
	default:
		return nil, mferrors.NewInvalidSettings("transport.open", fmt.Errorf("unknown mode %d", mode))
	}
	t.conn = conn
	t.log = logger.WithPeer(logger.Logger(), t.instanceID, resolved.String())

	t.running.Store(true)
	t.wg.Add(1)
	go t.workerLoop()
	return t, nil
}

// ComposeMsg assigns the next msg_id (wraps mod 256, matching the header's
// 8-bit field) and returns a fresh compose-message for it.
func (t *Transport) ComposeMsg() *MsgCompose {
	id := uint8(t.nextMsgID.Add(1) - 1)
	return &MsgCompose{t: t, msgID: id}
}

// Close stops the worker, waits for it to exit, and closes the socket.
// Safe to call more than once; later calls are no-ops.
func (t *Transport) Close() error {
	if !t.running.CompareAndSwap(true, false) {
		return nil
	}
	t.wg.Wait()
	return t.conn.Close()
}

// InstanceID is a per-Transport identifier used to correlate log lines
// across the worker goroutine and caller threads.
func (t *Transport) InstanceID() string { return t.instanceID }

// composeBuffer pairs a pool buffer with the codec.BufferRef view handed to
// the codec.Writer, so Write can find which buffer a given ref belongs to.
type composeBuffer struct {
	raw *bufpool.Buffer
	ref codec.BufferRef
}

// MsgCompose builds one outbound message packet-by-packet. Grounded on
// MsgComposeUDP: AllocBuffer/Write mirror the original's buffer-at-a-time
// accumulation, Send hands the accumulated buffers to the send queue and
// sets the Last flag on the tail, Close detaches the completion callback.
type MsgCompose struct {
	t         *Transport
	msgID     uint8
	packet    uint32
	buffers   []*composeBuffer
	sent      bool
	reportsOn atomic.Bool
}

// AllocBuffer allocates one packet buffer from the transport's pool,
// stamps it with a partial header (First set only on the first packet of
// this message), and returns the codec-facing view starting after the
// header and ending at the transport's MTU. Returns nil on pool exhaustion.
func (m *MsgCompose) AllocBuffer() *codec.BufferRef {
	var list []*bufpool.Buffer
	if !m.t.pool.Alloc(&list, m.t.mtu) {
		return nil
	}
	raw := list[0]

	hdr := wire.Header{MsgID: m.msgID, Packet: m.packet}
	if m.packet == 0 {
		hdr.Flags |= wire.First
	}
	hdr.Encode(raw.Base[:wire.HeaderSize])
	m.packet++

	cb := &composeBuffer{raw: raw}
	end := len(raw.Base)
	if m.t.mtu > wire.HeaderSize && m.t.mtu < end {
		end = m.t.mtu
	}
	cb.ref = codec.BufferRef{Data: raw.Base[wire.HeaderSize:end]}
	m.buffers = append(m.buffers, cb)
	return &cb.ref
}

// Write records the number of valid payload bytes the codec wrote into
// buf, so the buffer's on-wire size (header + payload) is known at send
// time. buf must be a ref this MsgCompose's AllocBuffer returned.
func (m *MsgCompose) Write(buf *codec.BufferRef, written int) {
	for _, cb := range m.buffers {
		if &cb.ref == buf {
			cb.raw.Size = wire.HeaderSize + written
			return
		}
	}
}

// Send finalizes the message. If failed is true, or no buffers were ever
// allocated, the buffers are released back to the pool and onSent is never
// called. Otherwise the tail buffer's header gets the Last flag and the
// whole buffer list is handed to the send queue; onSent fires once the
// worker has attempted transmission of the Last packet, unless Close has
// since detached it.
func (m *MsgCompose) Send(failed bool, onSent func(error)) {
	if failed || len(m.buffers) == 0 {
		m.releaseUnsent()
		return
	}

	tail := m.buffers[len(m.buffers)-1]
	hdr := wire.Decode(tail.raw.Base[:wire.HeaderSize])
	hdr.Flags |= wire.Last
	hdr.Encode(tail.raw.Base[:wire.HeaderSize])

	raws := make([]*bufpool.Buffer, len(m.buffers))
	for i, cb := range m.buffers {
		raws[i] = cb.raw
	}
	m.sent = true
	m.reportsOn.Store(true)
	m.t.sendQ.send(m.msgID, raws, func(err error) {
		if m.reportsOn.Load() && onSent != nil {
			onSent(err)
		}
	})
	m.buffers = nil
}

// Close detaches the completion callback; a report already in flight past
// this point is dropped rather than delivered. Buffers allocated but never
// handed to Send are released back to the pool.
func (m *MsgCompose) Close() {
	m.reportsOn.Store(false)
	if !m.sent {
		m.releaseUnsent()
	}
}

func (m *MsgCompose) releaseUnsent() {
	if len(m.buffers) == 0 {
		return
	}
	raws := make([]*bufpool.Buffer, len(m.buffers))
	for i, cb := range m.buffers {
		raws[i] = cb.raw
	}
	m.t.pool.Release(raws)
	m.buffers = nil
}

// MsgReceived wraps one fully reassembled inbound message. Grounded on
// MsgReceivedUDP, whose destructor releases its buffers back to the store;
// here that's an explicit Release the callback must call.
type MsgReceived struct {
	msgID    uint8
	buffers  []*bufpool.Buffer
	pool     *bufpool.Pool
	released atomic.Bool
}

// MessageID returns the msg_id shared by every packet in this message.
func (m *MsgReceived) MessageID() uint8 { return m.msgID }

// Payloads returns the header-stripped payload view of each packet in
// order, ready for a codec.Reader.
func (m *MsgReceived) Payloads() []*codec.BufferRef {
	refs := make([]*codec.BufferRef, len(m.buffers))
	for i, b := range m.buffers {
		refs[i] = &codec.BufferRef{Data: b.Base[wire.HeaderSize:b.Size]}
	}
	return refs
}

// Release returns the message's buffers to the pool. Safe to call more
// than once.
func (m *MsgReceived) Release() {
	if m.released.Swap(true) {
		return
	}
	m.pool.Release(m.buffers)
}
