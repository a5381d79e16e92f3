package bufpool

import (
	"sync"
	"testing"
)

func TestPoolAllocReturnsSizedBuffer(t *testing.T) {
	t.Parallel()

	p := New()

	tests := []struct {
		name        string
		requestSize int
	}{
		{name: "small", requestSize: 64},
		{name: "exact mtu", requestSize: DefaultMTU},
		{name: "zero", requestSize: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var list []*Buffer
			if !p.Alloc(&list, tc.requestSize) {
				t.Fatalf("expected Alloc to succeed for size %d", tc.requestSize)
			}
			if len(list) != 1 {
				t.Fatalf("expected one buffer appended, got %d", len(list))
			}
			buf := list[0]
			if cap(buf.Base) < DefaultMTU {
				t.Fatalf("expected backing array capacity >= %d, got %d", DefaultMTU, cap(buf.Base))
			}
			if buf.Size != 0 {
				t.Fatalf("expected fresh buffer to report zero size, got %d", buf.Size)
			}
		})
	}
}

func TestPoolAllocAppendsToExistingList(t *testing.T) {
	t.Parallel()

	p := New()
	var list []*Buffer
	list = append(list, &Buffer{Base: make([]byte, DefaultMTU)})

	if !p.Alloc(&list, 100) {
		t.Fatalf("expected Alloc to succeed")
	}
	if len(list) != 2 {
		t.Fatalf("expected list to grow to 2 entries, got %d", len(list))
	}
}

func TestPoolReleaseReusesBuffer(t *testing.T) {
	t.Parallel()

	p := New()

	var list []*Buffer
	if !p.Alloc(&list, 200) {
		t.Fatalf("expected Alloc to succeed")
	}
	buf := list[0]
	buf.Base[0] = 42
	buf.Size = 1
	ptr := &buf.Base[0]

	p.Release(list)

	var reused []*Buffer
	if !p.Alloc(&reused, 200) {
		t.Fatalf("expected Alloc to succeed")
	}
	if &reused[0].Base[0] != ptr {
		t.Fatalf("expected to get the same backing array back from the pool")
	}
	if reused[0].Size != 0 {
		t.Fatalf("expected recycled buffer's size reset to zero, got %d", reused[0].Size)
	}
}

func TestPoolReleaseIsLIFO(t *testing.T) {
	t.Parallel()

	p := New()

	var a, b []*Buffer
	p.Alloc(&a, 10)
	p.Alloc(&b, 10)
	first, second := a[0], b[0]

	p.Release([]*Buffer{first})
	p.Release([]*Buffer{second})

	var out []*Buffer
	p.Alloc(&out, 10)
	if out[0] != second {
		t.Fatalf("expected most-recently-released buffer to be reused first")
	}
}

func TestPoolConcurrentAccess(t *testing.T) {
	t.Parallel()

	p := New()
	var wg sync.WaitGroup

	worker := func(size int) {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			var list []*Buffer
			if !p.Alloc(&list, size) {
				t.Errorf("expected Alloc to succeed for size %d", size)
				return
			}
			buf := list[0]
			buf.Size = size
			for j := 0; j < size; j++ {
				buf.Base[j] = byte(i)
			}
			p.Release(list)
		}
	}

	sizes := []int{64, 512, 1024, 1499, 1500}
	for _, size := range sizes {
		size := size
		wg.Add(1)
		go worker(size)
	}

	wg.Wait()
}

func TestPoolNilSafety(t *testing.T) {
	t.Parallel()

	var p *Pool
	var list []*Buffer
	if p.Alloc(&list, 10) {
		t.Fatalf("expected Alloc on nil pool to fail")
	}
	p.Release(list) // must not panic

	valid := New()
	if valid.Alloc(nil, 10) {
		t.Fatalf("expected Alloc with nil out pointer to fail")
	}
}

func TestPackageLevelDefaultPool(t *testing.T) {
	t.Parallel()

	var list []*Buffer
	if !Alloc(&list, 50) {
		t.Fatalf("expected package-level Alloc to succeed")
	}
	Release(list)
}

func TestBufferWhole(t *testing.T) {
	t.Parallel()

	b := &Buffer{Base: make([]byte, DefaultMTU)}
	copy(b.Base, []byte{1, 2, 3})
	b.Size = 3
	if got := b.Whole(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected Whole() result: %v", got)
	}
}
