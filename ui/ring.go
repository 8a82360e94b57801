package ui

import (
	"io"
	"sync"
)

// SampleRing is a byte ring buffer between the render goroutine and the
// audio device. Read blocks while empty; Write never blocks and overwrites
// the oldest bytes when full.
type SampleRing struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	head   int // next byte to read
	count  int
	closed bool

	overwritten int
}

// NewSampleRing creates a ring holding size bytes.
func NewSampleRing(size int) *SampleRing {
	r := &SampleRing{buf: make([]byte, size)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Write appends p, discarding the oldest data on overflow.
func (r *SampleRing) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || len(p) == 0 {
		return
	}
	size := len(r.buf)
	if len(p) > size {
		r.overwritten += len(p) - size
		p = p[len(p)-size:]
	}
	if over := r.count + len(p) - size; over > 0 {
		r.head = (r.head + over) % size
		r.count -= over
		r.overwritten += over
	}

	tail := (r.head + r.count) % size
	n := copy(r.buf[tail:], p)
	copy(r.buf, p[n:])
	r.count += len(p)
	r.cond.Signal()
}

// Read implements io.Reader. It returns io.EOF once the ring is closed
// and empty.
func (r *SampleRing) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.count == 0 {
		if r.closed {
			return 0, io.EOF
		}
		r.cond.Wait()
	}

	n := min(len(p), r.count)
	first := copy(p[:n], r.buf[r.head:])
	copy(p[first:n], r.buf)
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
	return n, nil
}

// Buffered returns the bytes waiting to be read.
func (r *SampleRing) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Overwritten returns the bytes lost to overflow.
func (r *SampleRing) Overwritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overwritten
}

// Clear discards buffered data.
func (r *SampleRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.count = 0
}

// Close wakes blocked readers. Buffered data can still be read.
func (r *SampleRing) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}
