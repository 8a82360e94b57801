// Package fm implements the register write dispatch shared by FM chip
// backends: the write queue, the register diff pool, per-channel FM state
// and the volume curves.
package fm

import (
	"iter"
	"log"
)

// Base is the composition root of an FM backend. It owns the write queue,
// the register pool and the channel array, and exposes the write primitives
// backends build their register logic on.
//
// Base is not safe for concurrent use; one chip instance runs on one
// audio thread.
type Base struct {
	Chan []Channel

	// LastBusy is the most recent status byte read back from the chip.
	LastBusy uint8
	// Delay models the chip's command-acceptance latency in clocks.
	Delay int

	writes  WriteQueue
	pool    RegisterPool
	curve   VolumeCurve
	dump    DumpSink
	logger  *log.Logger
	dropped int

	flushFirst bool
	skipWrites bool
	legacyVol  bool
}

// Option configures a Base.
type Option func(*Base)

// WithCurve replaces the default -0.75 dB volume curve.
func WithCurve(c VolumeCurve) Option {
	return func(b *Base) {
		b.curve = c
	}
}

// WithLogger routes queue warnings to l instead of the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Base) {
		b.logger = l
	}
}

// WithDump enables write capture into sink.
func WithDump(sink DumpSink) Option {
	return func(b *Base) {
		b.dump = sink
	}
}

// WithLegacyVolume sets the always-set-volume compatibility toggle.
func WithLegacyVolume(enabled bool) Option {
	return func(b *Base) {
		b.legacyVol = enabled
	}
}

// NewBase creates a Base with channels channels.
func NewBase(channels int, stereo bool, opts ...Option) *Base {
	b := &Base{
		Chan:      make([]Channel, channels),
		curve:     DefaultCurve,
		logger:    log.Default(),
		legacyVol: true,
	}
	for i := range b.Chan {
		b.Chan[i] = NewChannel(stereo)
	}
	for _, opt := range opts {
		opt(b)
	}
	b.Reset()
	return b
}

// Reset drops every queued write, clears the register pool, resets all
// channels in place and leaves the flush barrier.
func (b *Base) Reset() {
	b.writes.Clear()
	b.pool.Reset()
	for i := range b.Chan {
		b.Chan[i].Reset()
	}
	b.LastBusy = 0
	b.Delay = 0
	b.flushFirst = false
	b.dropped = 0
}

// Channel returns channel ch after checking the index.
func (b *Base) Channel(ch int) (*Channel, error) {
	if ch < 0 || ch >= len(b.Chan) {
		return nil, ErrChannelRange
	}
	return &b.Chan[ch], nil
}

// Stage records a desired register value. It has no hardware effect and is
// ignored while writes are suppressed.
func (b *Base) Stage(addr uint16, v int16) {
	if b.skipWrites {
		return
	}
	b.pool.Stage(addr, v)
}

// Commit queues a write unconditionally, bypassing the diff.
func (b *Base) Commit(addr uint32, v uint16) {
	if b.skipWrites {
		return
	}
	b.enqueue(QueuedWrite{Addr: addr, Val: v}, false)
}

// CommitUrgent queues a write ahead of every pending normal write. While the
// flush barrier is up it is queued at the tail instead.
func (b *Base) CommitUrgent(addr uint32, v uint8) {
	if b.skipWrites {
		return
	}
	b.enqueue(QueuedWrite{Addr: addr, Val: uint16(v), Urgent: true}, !b.flushFirst)
}

func (b *Base) enqueue(w QueuedWrite, front bool) {
	var err error
	if front {
		err = b.writes.PushFront(w)
	} else {
		err = b.writes.PushBack(w)
	}
	if err != nil {
		if b.dropped == 0 && b.logger != nil {
			b.logger.Printf("Warning: fm: dropping write %03X=%02X: %v", w.Addr, w.Val, err)
		}
		b.dropped++
		return
	}
	if b.dump != nil {
		b.dump.AddWrite(w.Addr, w.Val)
	}
}

// Pool exposes the register pool for backend diff logic.
func (b *Base) Pool() *RegisterPool {
	return &b.pool
}

// Queue exposes the write queue for backends that consume it write by write.
func (b *Base) Queue() *WriteQueue {
	return &b.writes
}

// Drain yields queued writes in order, urgent ones first.
func (b *Base) Drain() iter.Seq[QueuedWrite] {
	return b.writes.Drain()
}

// Pending returns the number of queued writes.
func (b *Base) Pending() int {
	return b.writes.Len()
}

// Dropped returns the number of writes lost to overflow since reset.
func (b *Base) Dropped() int {
	return b.dropped
}

// BeginFlush raises the flush barrier: urgent writes queue in order.
func (b *Base) BeginFlush() {
	b.flushFirst = true
}

// EndFlush lowers the flush barrier.
func (b *Base) EndFlush() {
	b.flushFirst = false
}

// FlushFirst reports whether the flush barrier is up.
func (b *Base) FlushFirst() bool {
	return b.flushFirst
}

// SetSkipWrites enables or disables write suppression, used to replay
// state without touching the chip.
func (b *Base) SetSkipWrites(skip bool) {
	b.skipWrites = skip
}

// SkipWrites reports whether writes are suppressed.
func (b *Base) SkipWrites() bool {
	return b.skipWrites
}

// SetDump starts capturing writes into sink; nil stops capture.
func (b *Base) SetDump(sink DumpSink) {
	b.dump = sink
}

// LegacyAlwaysSetVolume reports whether volume must be re-asserted on every
// note rather than only on change.
func (b *Base) LegacyAlwaysSetVolume() bool {
	return b.legacyVol
}

// MapVelocity converts a normalized velocity with the backend's curve.
func (b *Base) MapVelocity(ch int, vel float64) int {
	return b.curve.MapVelocity(ch, vel)
}

// Gain converts a volume index with the backend's curve.
func (b *Base) Gain(ch int, vol int) float64 {
	return b.curve.Gain(ch, vol)
}
