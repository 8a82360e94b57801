package fm

import "testing"

func drainAddrs(b *Base) []uint32 {
	var out []uint32
	for w := range b.Drain() {
		out = append(out, w.Addr)
	}
	return out
}

func equalAddrs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueue_FIFOOrder(t *testing.T) {
	var q WriteQueue
	for i := 0; i < 5; i++ {
		if err := q.PushBack(QueuedWrite{Addr: uint32(i)}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	i := 0
	for w := range q.Drain() {
		if w.Addr != uint32(i) {
			t.Errorf("position %d: expected addr %d, got %d", i, i, w.Addr)
		}
		i++
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
}

func TestQueue_PushFrontPrecedesQueued(t *testing.T) {
	var q WriteQueue
	q.PushBack(QueuedWrite{Addr: 1})
	q.PushBack(QueuedWrite{Addr: 2})
	q.PushFront(QueuedWrite{Addr: 9, Urgent: true})

	w, _ := q.PopFront()
	if w.Addr != 9 || !w.Urgent {
		t.Errorf("expected urgent write first, got %+v", w)
	}
}

func TestQueue_DrainIsNotRestartable(t *testing.T) {
	var q WriteQueue
	q.PushBack(QueuedWrite{Addr: 1})
	q.PushBack(QueuedWrite{Addr: 2})

	seq := q.Drain()
	n := 0
	for range seq {
		n++
	}
	for range seq {
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 writes across both ranges, got %d", n)
	}
}

func TestQueue_DrainStopEarlyKeepsRest(t *testing.T) {
	var q WriteQueue
	for i := 0; i < 4; i++ {
		q.PushBack(QueuedWrite{Addr: uint32(i)})
	}
	for w := range q.Drain() {
		if w.Addr == 1 {
			break
		}
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 writes left, got %d", q.Len())
	}
	w, _ := q.PopFront()
	if w.Addr != 2 {
		t.Errorf("expected addr 2 at head, got %d", w.Addr)
	}
}

func TestQueue_WrapAround(t *testing.T) {
	var q WriteQueue
	// Move head near the end of the ring, then fill across the boundary.
	for i := 0; i < QueueCapacity-2; i++ {
		q.PushBack(QueuedWrite{})
		q.PopFront()
	}
	for i := 0; i < 6; i++ {
		q.PushBack(QueuedWrite{Addr: uint32(i)})
	}
	q.PushFront(QueuedWrite{Addr: 100})
	want := []uint32{100, 0, 1, 2, 3, 4, 5}
	for i, a := range want {
		w, ok := q.PopFront()
		if !ok || w.Addr != a {
			t.Fatalf("position %d: expected %d, got %d (ok=%v)", i, a, w.Addr, ok)
		}
	}
}

func TestQueue_FrontAllowsPhaseUpdate(t *testing.T) {
	var q WriteQueue
	q.PushBack(QueuedWrite{Addr: 0x28, Val: 0xF0})
	w, ok := q.Front()
	if !ok {
		t.Fatal("expected a head write")
	}
	w.AddrOrVal = true
	got, _ := q.PopFront()
	if !got.AddrOrVal {
		t.Error("phase update through Front was lost")
	}
}
