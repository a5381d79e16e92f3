package transport

import (
	"testing"

	"github.com/vellum-io/mfpipe/internal/bufpool"
	"github.com/vellum-io/mfpipe/internal/wire"
)

func makePacket(t *testing.T, msgID uint8, packet uint32, flags wire.Flag, payload []byte) *bufpool.Buffer {
	t.Helper()
	buf := &bufpool.Buffer{Base: make([]byte, bufpool.DefaultMTU)}
	hdr := wire.Header{Flags: flags, MsgID: msgID, Packet: packet}
	hdr.Encode(buf.Base[:wire.HeaderSize])
	n := copy(buf.Base[wire.HeaderSize:], payload)
	buf.Size = wire.HeaderSize + n
	return buf
}

func TestSendQueueFIFOOrderAcrossMessages(t *testing.T) {
	t.Parallel()

	q := newSendQueue()
	a1 := makePacket(t, 1, 0, wire.First, []byte("a1"))
	a2 := makePacket(t, 1, 1, wire.Last, []byte("a2"))
	b1 := makePacket(t, 2, 0, wire.First|wire.Last, []byte("b1"))

	q.send(1, []*bufpool.Buffer{a1, a2}, func(error) {})
	q.send(2, []*bufpool.Buffer{b1}, func(error) {})

	if got := q.nextPacket(); got != a1 {
		t.Fatalf("expected a1 first, got %v", got)
	}
	if got := q.nextPacket(); got != a2 {
		t.Fatalf("expected a2 second, got %v", got)
	}
	if got := q.nextPacket(); got != b1 {
		t.Fatalf("expected b1 third, got %v", got)
	}
	if got := q.nextPacket(); got != nil {
		t.Fatalf("expected nil once drained, got %v", got)
	}
}

func TestSendQueueSentReportInvokesAndClearsCallback(t *testing.T) {
	t.Parallel()

	q := newSendQueue()
	var gotErr error
	calls := 0
	q.send(5, nil, func(err error) {
		calls++
		gotErr = err
	})

	sentinel := errSentinel{}
	q.sentReport(5, sentinel)
	if calls != 1 {
		t.Fatalf("expected callback invoked once, got %d", calls)
	}
	if gotErr != sentinel {
		t.Fatalf("expected sentinel error propagated, got %v", gotErr)
	}

	// A second report for the same (already-removed) msgID must not
	// invoke the callback again.
	q.sentReport(5, nil)
	if calls != 1 {
		t.Fatalf("expected no further callback invocation, got %d calls", calls)
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }

func TestRecvQueueSplicesUntilLast(t *testing.T) {
	t.Parallel()

	q := newRecvQueue()
	p0 := makePacket(t, 9, 0, wire.First, []byte("one"))
	p1 := makePacket(t, 9, 1, 0, []byte("two"))
	p2 := makePacket(t, 9, 2, wire.Last, []byte("three"))

	if _, complete := q.processBuffer(wire.Decode(p0.Base[:wire.HeaderSize]), p0); complete {
		t.Fatalf("expected incomplete after first packet")
	}
	if _, complete := q.processBuffer(wire.Decode(p1.Base[:wire.HeaderSize]), p1); complete {
		t.Fatalf("expected incomplete after second packet")
	}

	full, complete := q.processBuffer(wire.Decode(p2.Base[:wire.HeaderSize]), p2)
	if !complete {
		t.Fatalf("expected complete after Last packet")
	}
	if len(full) != 3 || full[0] != p0 || full[1] != p1 || full[2] != p2 {
		t.Fatalf("expected spliced buffers in arrival order, got %v", full)
	}

	if _, ok := q.records[9]; ok {
		t.Fatalf("expected record removed once complete")
	}
}

func TestRecvQueueTracksMultipleMessagesConcurrently(t *testing.T) {
	t.Parallel()

	q := newRecvQueue()
	a0 := makePacket(t, 1, 0, wire.First|wire.Last, []byte("a"))
	b0 := makePacket(t, 2, 0, wire.First, []byte("b0"))

	_, completeA := q.processBuffer(wire.Decode(a0.Base[:wire.HeaderSize]), a0)
	if !completeA {
		t.Fatalf("expected single-packet message to complete immediately")
	}
	_, completeB := q.processBuffer(wire.Decode(b0.Base[:wire.HeaderSize]), b0)
	if completeB {
		t.Fatalf("expected message 2 to remain incomplete")
	}
	if _, ok := q.records[2]; !ok {
		t.Fatalf("expected message 2's record to still be tracked")
	}
}
