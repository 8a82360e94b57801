package ui

import (
	"sync"
	"time"
)

// PlaybackControl coordinates pause, resume and stop between a controller
// and the render goroutine.
type PlaybackControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	stopped  bool
	ack      chan struct{}
}

// NewPlaybackControl creates a control in the running state.
func NewPlaybackControl() *PlaybackControl {
	return &PlaybackControl{ack: make(chan struct{}, 1)}
}

// Pause asks the render goroutine to pause and waits until it has.
// It returns immediately if already paused or stopped.
func (c *PlaybackControl) Pause() {
	c.mu.Lock()
	if c.paused || c.pauseReq || c.stopped {
		c.mu.Unlock()
		return
	}
	c.pauseReq = true
	c.mu.Unlock()

	<-c.ack
}

// Resume releases a paused render goroutine.
func (c *PlaybackControl) Resume() {
	c.mu.Lock()
	c.pauseReq = false
	c.paused = false
	c.mu.Unlock()
}

// Stop tells the render goroutine to exit.
func (c *PlaybackControl) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.pauseReq = false
	c.mu.Unlock()

	// Release a Pause waiting on a goroutine that has already exited
	select {
	case c.ack <- struct{}{}:
	default:
	}
}

// Wait is called by the render goroutine between ticks. It parks while a
// pause is requested and returns false once playback should stop.
func (c *PlaybackControl) Wait() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if !c.pauseReq {
		c.mu.Unlock()
		return true
	}
	c.paused = true
	c.mu.Unlock()

	select {
	case c.ack <- struct{}{}:
	default:
	}

	for {
		time.Sleep(10 * time.Millisecond)
		c.mu.Lock()
		switch {
		case c.stopped:
			c.mu.Unlock()
			return false
		case !c.pauseReq:
			c.paused = false
			c.mu.Unlock()
			return true
		}
		c.mu.Unlock()
	}
}

// Running reports whether Stop has not been called.
func (c *PlaybackControl) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped
}

// Paused reports whether the render goroutine is parked.
func (c *PlaybackControl) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
