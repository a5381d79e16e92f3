package mfpipe

import (
	"time"

	"github.com/vellum-io/mfpipe/internal/codec"
	mferrors "github.com/vellum-io/mfpipe/internal/errors"
	"github.com/vellum-io/mfpipe/internal/objects"
)

// minWait is the poll granularity floor every wait in this package applies,
// matching the network worker's own poll interval (spec.md §4.6/§5): a
// caller asking for a shorter timeout still waits at least this long before
// giving up.
const minWait = 100 * time.Millisecond

// Put writes obj to channel. timeout bounds how long Put waits for the
// worker to report the send attempt's outcome, never less than minWait; a
// zero timeout also waits minWait but then returns nil instead of a
// Timeout error. Mirrors MFPipeImpl::PipePut.
func (p *Pipe) Put(channel string, obj objects.Object, timeout time.Duration) error {
	return p.send(timeout, func(w *codec.Writer) bool {
		return encodeDataRecord(w, channel, obj)
	})
}

// Get removes and returns the oldest buffered Data record on channel.
// timeout bounds how long Get waits for a match to arrive; zero waits
// indefinitely. Mirrors MFPipeImpl::PipeGet.
func (p *Pipe) Get(channel string, timeout time.Duration) (objects.Object, error) {
	rec, err := p.waitForMatch(channel, recordData, timeout)
	if err != nil {
		return nil, err
	}
	return rec.object, nil
}

// MessagePut writes a named event with a string parameter to channel.
// Mirrors MFPipeImpl::PipeMessagePut.
func (p *Pipe) MessagePut(channel, name, param string, timeout time.Duration) error {
	return p.send(timeout, func(w *codec.Writer) bool {
		return encodeMessageRecord(w, channel, name, param)
	})
}

// MessageGet removes and returns the oldest buffered Message record on
// channel. Mirrors MFPipeImpl::PipeMessageGet.
func (p *Pipe) MessageGet(channel string, timeout time.Duration) (name, param string, err error) {
	rec, err := p.waitForMatch(channel, recordMessage, timeout)
	if err != nil {
		return "", "", err
	}
	return rec.eventName, rec.eventParam, nil
}

// send composes one outbound message via encode, hands it to the
// transport, and waits for the worker's send-completion report. The total
// wait is bounded by max(minWait, timeout) regardless of timeout, so a
// lost Last packet or a Close racing this call always unblocks the caller
// instead of hanging forever; a zero timeout only suppresses the Timeout
// error on that bound, it does not remove the bound. p.closed is rechecked
// every minWait tick so a concurrent Close unblocks promptly rather than
// waiting out the full bound.
func (p *Pipe) send(timeout time.Duration, encode func(w *codec.Writer) bool) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return mferrors.NewFatal("pipe.send", errPipeClosed)
	}

	m := p.t.ComposeMsg()
	w := codec.NewWriter(
		func(int) *codec.BufferRef { return m.AllocBuffer() },
		func(buf *codec.BufferRef, written int) { m.Write(buf, written) },
	)
	ok := encode(w)
	if ok {
		w.Flush()
	}

	done := make(chan error, 1)
	m.Send(!ok, func(err error) { done <- err })
	defer m.Close()

	if !ok {
		return mferrors.NewFatal("pipe.send", errEncodeFailed)
	}

	bound := minWait
	if timeout > bound {
		bound = timeout
	}
	reportTimeout := timeout != 0

	start := time.Now()
	for {
		remaining := bound - time.Since(start)
		if remaining <= 0 {
			if reportTimeout {
				return mferrors.NewTimeout("pipe.send")
			}
			return nil
		}
		wait := minWait
		if remaining < wait {
			wait = remaining
		}
		select {
		case err := <-done:
			return err
		case <-time.After(wait):
		}

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return mferrors.NewFatal("pipe.send", errPipeClosed)
		}
	}
}

// waitForMatch blocks until checkReceivedLocked finds a (channel, kind)
// match or max(minWait, timeout) elapses, whichever comes first. A zero timeout waits
// indefinitely and never reports a Timeout error, matching
// MFPipeImpl::CheckReceived's callers: only a nonzero requested wait can
// time out.
func (p *Pipe) waitForMatch(channel string, kind recordKind, timeout time.Duration) (*record, error) {
	start := time.Now()
	hasDeadline := timeout != 0
	bound := timeout
	if bound < minWait {
		bound = minWait
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if rec := p.checkReceivedLocked(channel, kind); rec != nil {
			return rec, nil
		}
		if p.closed {
			return nil, mferrors.NewFatal("pipe.wait", errPipeClosed)
		}

		wait := minWait
		if hasDeadline {
			remaining := bound - time.Since(start)
			if remaining <= 0 {
				return nil, mferrors.NewTimeout("pipe.wait")
			}
			if remaining < wait {
				wait = remaining
			}
		}
		p.waitLocked(wait)
	}
}

// waitLocked blocks until the next broadcastLocked call or timeout,
// whichever comes first. p.mu must be held on entry and is held again on
// return; it is released while actually waiting.
func (p *Pipe) waitLocked(timeout time.Duration) {
	ch := p.notifyCh
	p.mu.Unlock()
	timer := time.NewTimer(timeout)
	select {
	case <-ch:
		timer.Stop()
	case <-timer.C:
	}
	p.mu.Lock()
}
