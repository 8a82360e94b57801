// Package ui plays rendered audio through the host sound device and
// coordinates the render goroutine with its controller.
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/user-none/emfm/emu"
)

// ringCapacity is ~167ms at 48kHz stereo 16-bit.
const ringCapacity = 32768

// playerBufferSize is oto's internal buffer, 100ms of audio.
const playerBufferSize = 19200

// AudioPlayer streams int16 stereo frames to oto. Frames are written to a
// SampleRing which oto's player pulls from.
type AudioPlayer struct {
	player *oto.Player
	ring   *SampleRing
	bytes  []byte
}

var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

// otoContext creates the process-wide oto context on first use.
func otoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   emu.SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if otoInitErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoInitErr
}

// NewAudioPlayer opens the sound device and starts playback at volume
// (0.0 silent, 1.0 full).
func NewAudioPlayer(volume float64) (*AudioPlayer, error) {
	ctx, err := otoContext()
	if err != nil {
		return nil, fmt.Errorf("ui: audio device not available: %w", err)
	}

	ring := NewSampleRing(ringCapacity)
	player := ctx.NewPlayer(ring)
	player.SetBufferSize(playerBufferSize)
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{
		player: player,
		ring:   ring,
		bytes:  make([]byte, 0, 4096),
	}, nil
}

// QueueSamples queues interleaved stereo samples for playback.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	a.bytes = appendLE16(a.bytes[:0], samples)
	a.ring.Write(a.bytes)
}

// appendLE16 appends samples to dst as little-endian bytes.
func appendLE16(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = append(dst, byte(s), byte(s>>8))
	}
	return dst
}

// BufferLevel returns the bytes queued in the ring and inside oto.
func (a *AudioPlayer) BufferLevel() int {
	return a.ring.Buffered() + a.player.BufferedSize()
}

// Drain blocks until queued audio has played or timeout passes.
func (a *AudioPlayer) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for a.BufferLevel() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

// SetVolume sets the playback volume.
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close stops playback.
func (a *AudioPlayer) Close() {
	if a.ring != nil {
		a.ring.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}
