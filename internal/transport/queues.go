package transport

import (
	"sync"

	"github.com/vellum-io/mfpipe/internal/bufpool"
	"github.com/vellum-io/mfpipe/internal/wire"
)

// sendQueue holds, per in-flight message, the FIFO of not-yet-transmitted
// packets and the completion callback to invoke once the message's
// Last-flagged packet has been handed to the socket. Grounded on
// original_source/TransportUDP.h's SendingQueue: one mutex guards both the
// per-message record map and the flat to-send FIFO; callbacks fire with the
// mutex released.
type sendQueue struct {
	mu      sync.Mutex
	pending []*bufpool.Buffer
	onSent  map[uint8]func(error)
}

func newSendQueue() *sendQueue {
	return &sendQueue{onSent: make(map[uint8]func(error))}
}

// send enqueues every buffer of a composed message in order and records its
// completion callback. Buffers must already carry their final headers
// (Last set on the tail) and must outlive transmission.
func (q *sendQueue) send(msgID uint8, buffers []*bufpool.Buffer, report func(error)) {
	q.mu.Lock()
	q.onSent[msgID] = report
	q.pending = append(q.pending, buffers...)
	q.mu.Unlock()
}

// nextPacket pops the head of the to-send FIFO, or nil if empty.
func (q *sendQueue) nextPacket() *bufpool.Buffer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	buf := q.pending[0]
	q.pending = q.pending[1:]
	return buf
}

// sentReport drops msgID's record and invokes its callback with err outside
// the lock, matching the no-nested-locks discipline of the send path.
func (q *sendQueue) sentReport(msgID uint8, err error) {
	q.mu.Lock()
	report, ok := q.onSent[msgID]
	if ok {
		delete(q.onSent, msgID)
	}
	q.mu.Unlock()
	if ok && report != nil {
		report(err)
	}
}

// processResponse handles an inbound Response-flagged packet. Response/ACK
// handling is a reserved placeholder in this protocol (spec.md §9); there is
// no retransmission or ack-range bookkeeping to drive here, so a Response
// packet is ignored: nothing is sent back and no record changes. The hook
// is kept distinct from the ordinary data path to mirror
// SendingQueue::ProcessResponse's position in the original.
func (q *sendQueue) processResponse(hdr wire.Header, buf *bufpool.Buffer) {
	_ = hdr
	_ = buf
}

// recvRecord is one message-in-progress on the receive side: the ordered
// list of packets spliced in as they arrive.
type recvRecord struct {
	buffers []*bufpool.Buffer
}

// recvQueue groups incoming packets by msg_id and emits a complete message
// once a packet carrying the Last flag arrives. Grounded on
// original_source/TransportUDP.h's ReceivingQueue: single-threaded from the
// worker goroutine, so it carries no internal lock.
type recvQueue struct {
	records map[uint8]*recvRecord
}

func newRecvQueue() *recvQueue {
	return &recvQueue{records: make(map[uint8]*recvRecord)}
}

// processBuffer splices buf onto msg_id's in-progress record. If buf carries
// the Last flag, the record is complete: it is removed and its full buffer
// list returned for delivery. Returns (nil, false) otherwise.
func (q *recvQueue) processBuffer(hdr wire.Header, buf *bufpool.Buffer) ([]*bufpool.Buffer, bool) {
	rec, ok := q.records[hdr.MsgID]
	if !ok {
		rec = &recvRecord{}
		q.records[hdr.MsgID] = rec
	}
	rec.buffers = append(rec.buffers, buf)

	if !hdr.Flags.Has(wire.Last) {
		return nil, false
	}
	delete(q.records, hdr.MsgID)
	return rec.buffers, true
}
