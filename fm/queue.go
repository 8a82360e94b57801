package fm

import "iter"

// QueueCapacity is the maximum number of writes in flight for one chip.
const QueueCapacity = 2048

// QueuedWrite is one pending hardware register write.
type QueuedWrite struct {
	Addr uint32
	Val  uint16

	// AddrOrVal is the two-phase access tag. The base never interprets it;
	// backends with split address/data ports use it to remember which phase
	// of the write has already reached the chip.
	AddrOrVal bool

	Urgent bool
}

// WriteQueue is a fixed-capacity double-ended ring of pending writes.
// It is single-producer, single-consumer and not safe for concurrent use.
type WriteQueue struct {
	buf   [QueueCapacity]QueuedWrite
	head  int
	count int
}

// Len returns the number of queued writes.
func (q *WriteQueue) Len() int {
	return q.count
}

// Full reports whether the queue is at capacity.
func (q *WriteQueue) Full() bool {
	return q.count == QueueCapacity
}

// PushBack appends w to the tail.
func (q *WriteQueue) PushBack(w QueuedWrite) error {
	if q.count == QueueCapacity {
		assertNotFull()
		return ErrQueueFull
	}
	q.buf[(q.head+q.count)%QueueCapacity] = w
	q.count++
	return nil
}

// PushFront inserts w at the head, ahead of everything already queued.
func (q *WriteQueue) PushFront(w QueuedWrite) error {
	if q.count == QueueCapacity {
		assertNotFull()
		return ErrQueueFull
	}
	q.head = (q.head + QueueCapacity - 1) % QueueCapacity
	q.buf[q.head] = w
	q.count++
	return nil
}

// Front returns the head write for in-place updates. The pointer is valid
// until the next push or pop.
func (q *WriteQueue) Front() (*QueuedWrite, bool) {
	if q.count == 0 {
		return nil, false
	}
	return &q.buf[q.head], true
}

// PopFront removes and returns the head write.
func (q *WriteQueue) PopFront() (QueuedWrite, bool) {
	if q.count == 0 {
		return QueuedWrite{}, false
	}
	w := q.buf[q.head]
	q.buf[q.head] = QueuedWrite{}
	q.head = (q.head + 1) % QueueCapacity
	q.count--
	return w, true
}

// Drain yields writes in queue order, removing each one as it is consumed.
// Stopping early leaves the remaining writes queued.
func (q *WriteQueue) Drain() iter.Seq[QueuedWrite] {
	return func(yield func(QueuedWrite) bool) {
		for {
			w, ok := q.PopFront()
			if !ok {
				return
			}
			if !yield(w) {
				return
			}
		}
	}
}

// Clear discards every queued write.
func (q *WriteQueue) Clear() {
	for q.count > 0 {
		q.PopFront()
	}
	q.head = 0
}
