package mfpipe

import (
	mferrors "github.com/vellum-io/mfpipe/internal/errors"
	"github.com/vellum-io/mfpipe/internal/logger"
	"github.com/vellum-io/mfpipe/internal/objects"
)

// FlushFlags selects what Flush drops, mirroring eMFFlashFlags. The
// original collides FlushObjects and FlushStream at 0x20; per the
// redesign decision recorded in DESIGN.md, FlushStream is reassigned the
// next free bit instead of replicating that collision.
type FlushFlags uint32

const (
	FlushResetCounters FlushFlags = 0x2
	FlushObjects       FlushFlags = 0x20
	FlushMessages      FlushFlags = 0x40
	FlushRemoveChannel FlushFlags = 0x100
	FlushStream        FlushFlags = 0x200
	FlushAll           FlushFlags = 0xf0
)

// Has reports whether bit is set in f.
func (f FlushFlags) Has(bit FlushFlags) bool { return f&bit != 0 }

// Flush drops buffered, unread records on channel selected by flags.
// FlushObjects and FlushStream both drop Data records (FlushStream exists
// as its own bit only so callers can name "stream" payloads distinctly in
// their own code; this dispatcher doesn't distinguish Buffer-flagged
// stream data from other Data records). FlushMessages drops Message
// records. FlushRemoveChannel drops every record on channel regardless of
// kind. FlushResetCounters is accepted but has no effect until InfoGet
// grows real counters to reset.
//
// The original's PipeFlush is a stub that ignores its flags argument
// entirely; this gives Flush the behavior its flags enum implies instead,
// a deliberate divergence recorded in DESIGN.md.
func (p *Pipe) Flush(channel string, flags FlushFlags) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var dropped int
	kept := p.records[:0]
	for _, rec := range p.records {
		if rec.kind == recordUnparsed {
			if !parseRecord(rec) {
				rec.msg.Release()
				continue
			}
			rec.msg.Release()
			rec.msg = nil
		}

		if rec.channel == channel {
			drop := flags.Has(FlushRemoveChannel) ||
				(rec.kind == recordData && (flags.Has(FlushObjects) || flags.Has(FlushStream))) ||
				(rec.kind == recordMessage && flags.Has(FlushMessages))
			if drop {
				dropped++
				continue
			}
		}
		kept = append(kept, rec)
	}
	p.records = kept

	logger.WithChannel(p.log, channel).Info("flushed records", "flags", flags, "dropped", dropped)
	return nil
}

// Peek reports the oldest buffered Data record on channel without
// removing it. Not implemented.
func (p *Pipe) Peek(channel string) (objects.Object, error) {
	return nil, mferrors.NewNotImplemented("pipe.peek")
}

// PipeInfo mirrors MF_PIPE_INFO. Its shape is part of the public surface
// per the supplemented original struct, even though InfoGet itself still
// returns NotImplemented: populating it requires per-channel counters this
// dispatcher doesn't keep yet.
type PipeInfo struct {
	PipeMode        Mode
	PipesConnected  int
	Channels        int
	ObjectsHave     int
	ObjectsMax      int
	ObjectsDropped  int
	ObjectsFlushed  int
	MessagesHave    int
	MessagesMax     int
	MessagesDropped int
	MessagesFlushed int
}

// InfoGet is not implemented.
func (p *Pipe) InfoGet() (*PipeInfo, error) {
	return nil, mferrors.NewNotImplemented("pipe.info_get")
}
