// Package bufpool implements the fixed-capacity packet buffer allocator
// shared by the transport and codec layers (spec component C1).
package bufpool

import "sync"

// DefaultMTU is the backing array size for every pooled Buffer when no
// explicit size is requested. 1500 matches a conservative Ethernet MTU, the
// same default the network worker uses for its recv/send buffers.
const DefaultMTU = 1500

// Buffer is a single packet-sized region of memory. Base is the full
// backing array, header included, as handed to the socket for a send or
// filled by the socket on a receive. Size is the number of valid bytes at
// the front of Base; callers that need the wire-format payload only (with
// the packet header stripped) slice Base themselves once they know the
// header width.
type Buffer struct {
	Base []byte
	Size int
	next *Buffer
}

// Whole returns the valid bytes of Base, header included — the view a
// socket Read/Write call operates on.
func (b *Buffer) Whole() []byte { return b.Base[:b.Size] }

// Reset clears the buffer back to empty (Size 0). Release and Alloc also
// zero Size; none of them clear the bytes in Base.
func (b *Buffer) Reset() {
	b.Size = 0
}

// Pool is a mutex-guarded free list of *Buffer. It does not distinguish
// sizes beyond "fits the request": every buffer is allocated with a
// capacity of at least size, in practice always DefaultMTU for datagrams
// built by this module. Allocation reuses the most recently released
// buffer (LIFO); the pool grows on demand and never shrinks.
type Pool struct {
	mu   sync.Mutex
	free *Buffer
}

var defaultPool = New()

// Alloc appends one buffer of at least size bytes to the package-level
// default pool's out list.
func Alloc(out *[]*Buffer, size int) bool {
	return defaultPool.Alloc(out, size)
}

// Release returns list's buffers to the package-level default pool's free
// store.
func Release(list []*Buffer) {
	defaultPool.Release(list)
}

// New creates an empty buffer pool.
func New() *Pool {
	return &Pool{}
}

// Alloc appends one buffer of at least size bytes to out. It only fails
// (returns false) when p or out is nil or size is negative; packets in this
// module are always datagram-sized, so a request within bounds always
// succeeds, recycling a free buffer when one is available or allocating a
// fresh one otherwise.
func (p *Pool) Alloc(out *[]*Buffer, size int) bool {
	if p == nil || out == nil || size < 0 {
		return false
	}
	capNeeded := size
	if capNeeded < DefaultMTU {
		capNeeded = DefaultMTU
	}

	p.mu.Lock()
	var buf *Buffer
	if p.free != nil && cap(p.free.Base) >= capNeeded {
		buf = p.free
		p.free = buf.next
		buf.next = nil
	}
	p.mu.Unlock()

	if buf == nil {
		buf = &Buffer{Base: make([]byte, capNeeded)}
	}
	buf.Size = 0
	*out = append(*out, buf)
	return true
}

// Release moves every buffer in list back to the free store, most recently
// released first, so the next Alloc reuses it.
func (p *Pool) Release(list []*Buffer) {
	if p == nil || len(list) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, buf := range list {
		if buf == nil {
			continue
		}
		buf.Size = 0
		buf.next = p.free
		p.free = buf
	}
}
