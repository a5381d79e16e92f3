package transport

import (
	"errors"
	"net"
	"time"

	"github.com/vellum-io/mfpipe/internal/bufpool"
	mferrors "github.com/vellum-io/mfpipe/internal/errors"
	"github.com/vellum-io/mfpipe/internal/wire"
)

// workerLoop is the single network worker goroutine (spec component C6).
// original_source/TransportUDP.cpp's NetworkWork() multiplexes one read and
// one write per select() tick because write-readiness on a UDP socket is
// essentially always true, so select returns immediately and the loop spins
// fast. Go exposes no equivalent readiness primitive over net.UDPConn, so
// this adapts the same "single worker thread, 100ms poll granularity" shape
// onto a blocking read with a deadline: every iteration first drains
// whatever is queued to send (WriteToUDP never blocks for a datagram-sized
// write) and then blocks on one read up to pollInterval. The running flag
// is checked both before the read and immediately after it returns, so a
// Close observes termination within one poll quantum either way.
func (t *Transport) workerLoop() {
	defer t.wg.Done()

	readBuf := make([]byte, t.mtu)
	for t.running.Load() {
		t.drainSendQueue()

		if err := t.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			t.log.Warn("failed to set read deadline", "error", err)
		}
		n, from, err := t.conn.ReadFromUDP(readBuf)
		if !t.running.Load() {
			return
		}
		if err != nil {
			if !isTimeoutErr(err) {
				t.log.Warn("network worker recv error", "error", err)
			}
			continue
		}
		t.handleRecv(readBuf[:n], from)
	}
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// drainSendQueue transmits every packet currently queued. Unlike the
// original's one-packet-per-tick write phase, this drains the whole queue
// each iteration; see workerLoop's comment for why that adaptation is
// necessary without OS-level readiness polling.
func (t *Transport) drainSendQueue() {
	for {
		pkt := t.sendQ.nextPacket()
		if pkt == nil {
			return
		}
		t.transmit(pkt)
	}
}

// transmit sends one packet and, if it carries the Last flag, reports
// completion to the send queue. The buffer is always released back to the
// pool afterward regardless of outcome.
func (t *Transport) transmit(pkt *bufpool.Buffer) {
	hdr := wire.Decode(pkt.Base[:wire.HeaderSize])
	remote := t.remoteAddr.Load()

	var sendErr error
	switch {
	case remote == nil:
		sendErr = mferrors.NewFatal("transport.send", errNoRemoteAddress)
	default:
		if _, err := t.conn.WriteToUDP(pkt.Whole(), remote); err != nil {
			sendErr = mferrors.NewSendError("transport.send", err)
		}
	}

	if hdr.Flags.Has(wire.Last) {
		t.sendQ.sentReport(hdr.MsgID, sendErr)
	}
	t.pool.Release([]*bufpool.Buffer{pkt})
}

var errNoRemoteAddress = errors.New("transport: no remote address known")

// handleRecv processes one datagram read from the socket: validates the
// header, allocates a pool buffer to hold it, learns the peer address on a
// Listen-mode transport's first inbound packet, and routes to the send
// queue's response handler or the receive queue's reassembly path.
func (t *Transport) handleRecv(data []byte, from *net.UDPAddr) {
	if len(data) < wire.HeaderSize {
		t.log.Warn("dropped short datagram", "len", len(data))
		return
	}
	hdr := wire.Decode(data[:wire.HeaderSize])

	var list []*bufpool.Buffer
	if !t.pool.Alloc(&list, t.mtu) {
		t.log.Warn("pool exhausted, dropping datagram")
		return
	}
	buf := list[0]
	buf.Size = copy(buf.Base, data)

	if t.mode == Listen && t.remoteAddr.Load() == nil {
		t.remoteAddr.Store(from)
	}

	if hdr.Flags.Has(wire.Response) {
		t.sendQ.processResponse(hdr, buf)
		t.pool.Release([]*bufpool.Buffer{buf})
		return
	}

	full, complete := t.recvQ.processBuffer(hdr, buf)
	if !complete {
		return
	}

	msg := &MsgReceived{msgID: hdr.MsgID, buffers: full, pool: t.pool}
	if t.onMessage != nil {
		t.onMessage(t, msg)
	} else {
		msg.Release()
	}
}
