// Package cli drives a script through the YM2612 backend and the sound
// board, tick by tick, for live playback or offline rendering.
package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/user-none/emfm/emu"
	"github.com/user-none/emfm/fm"
	"github.com/user-none/emfm/opn2"
	"github.com/user-none/emfm/script"
	"github.com/user-none/emfm/ui"
	"github.com/user-none/emfm/vgm"
)

// ADT buffer thresholds in bytes.
const (
	adtMinBuffer = 9600
	adtMaxBuffer = 19200
)

// chipSink is where drained writes land: the sound board directly or the
// Z80 driver in front of it.
type chipSink interface {
	opn2.PortWriter
	WritePSG(val uint8)
}

type config struct {
	region    emu.Region
	z80       bool
	legacyVol bool
	dryRun    bool
	tailTicks int // -1 selects one second
	maxTicks  int
	capture   *vgm.Writer
	logger    *log.Logger
}

// Option configures a Runner.
type Option func(*config)

// WithRegion selects the console clocks and tick rate.
func WithRegion(r emu.Region) Option {
	return func(c *config) { c.region = r }
}

// WithZ80 routes writes through the sound Z80 instead of writing the
// chip ports directly.
func WithZ80(on bool) Option {
	return func(c *config) { c.z80 = on }
}

// WithLegacyVolume sets the backend's always-set-volume toggle.
func WithLegacyVolume(on bool) Option {
	return func(c *config) { c.legacyVol = on }
}

// WithDryRun runs the script against the backend with chip writes
// suppressed and renders nothing.
func WithDryRun(on bool) Option {
	return func(c *config) { c.dryRun = on }
}

// WithTail sets how many ticks keep rendering after the last event.
func WithTail(ticks int) Option {
	return func(c *config) { c.tailTicks = ticks }
}

// WithMaxTicks caps the song length. Zero means no cap.
func WithMaxTicks(ticks int) Option {
	return func(c *config) { c.maxTicks = ticks }
}

// WithCapture records every chip write and PSG byte into w.
func WithCapture(w *vgm.Writer) Option {
	return func(c *config) { c.capture = w }
}

// WithLogger sets the logger for warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Runner plays a compiled script.
type Runner struct {
	cfg     config
	timing  emu.RegionTiming
	script  *script.Script
	events  *script.Player
	backend *opn2.Backend
	board   *emu.SoundBoard
	driver  *emu.Z80Driver
	sink    chipSink

	tick   int
	length int
}

// NewRunner prepares s for playback.
func NewRunner(s *script.Script, opts ...Option) *Runner {
	cfg := config{legacyVol: true, tailTicks: -1, logger: log.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	timing := emu.GetTimingForRegion(cfg.region)

	baseOpts := []fm.Option{fm.WithLegacyVolume(cfg.legacyVol), fm.WithLogger(cfg.logger)}
	if cfg.capture != nil {
		baseOpts = append(baseOpts, fm.WithDump(cfg.capture))
	}

	r := &Runner{
		cfg:     cfg,
		timing:  timing,
		script:  s,
		events:  script.NewPlayer(s),
		backend: opn2.New(opn2.WithClock(timing.YMClockHz), opn2.WithBaseOptions(baseOpts...)),
		board:   emu.NewSoundBoard(cfg.region),
	}
	r.sink = r.board
	if cfg.z80 {
		r.driver = emu.NewZ80Driver(r.board)
		r.sink = r.driver
	}
	if cfg.dryRun {
		r.backend.SetSkipWrites(true)
	}

	tail := cfg.tailTicks
	if tail < 0 {
		tail = timing.TickHz
	}
	r.length = s.Length + tail
	if cfg.maxTicks > 0 && cfg.maxTicks < r.length {
		r.length = cfg.maxTicks
	}
	return r
}

// Backend returns the register writer.
func (r *Runner) Backend() *opn2.Backend {
	return r.backend
}

// Board returns the sound board.
func (r *Runner) Board() *emu.SoundBoard {
	return r.board
}

// Driver returns the Z80 driver, or nil when writing ports directly.
func (r *Runner) Driver() *emu.Z80Driver {
	return r.driver
}

// Timing returns the region timing in use.
func (r *Runner) Timing() emu.RegionTiming {
	return r.timing
}

// Tick returns the number of ticks run.
func (r *Runner) Tick() int {
	return r.tick
}

// Length returns the total ticks the runner will play.
func (r *Runner) Length() int {
	return r.length
}

// Done reports whether every tick has been played.
func (r *Runner) Done() bool {
	return r.tick >= r.length
}

// WritePSG forwards a script PSG byte to the chip and the capture.
func (r *Runner) WritePSG(val uint8) {
	if r.cfg.dryRun {
		return
	}
	r.sink.WritePSG(val)
	if r.cfg.capture != nil {
		r.cfg.capture.AddPSG(val)
	}
}

// Step runs one tick and returns its audio. The slice is reused by the
// next call. A dry run returns no audio.
func (r *Runner) Step() ([]int16, error) {
	if err := r.events.Step(r.tick, r.backend, r); err != nil {
		return nil, err
	}
	r.backend.Tick()
	r.tick++

	if r.cfg.capture != nil {
		r.cfg.capture.Wait(vgm.SamplesPerTick(r.timing.TickHz))
	}
	if r.cfg.dryRun {
		return nil, nil
	}

	if r.driver != nil {
		r.backend.Flush(r.driver)
		r.driver.Run()
	} else {
		// One tick of chip time; a backlog carries into the next tick
		r.backend.Acquire(r.board, r.timing.YMClockHz/r.timing.TickHz)
	}
	return r.board.Render(r.timing.FramesPerTick()), nil
}

// RenderOffline plays every remaining tick and returns the audio.
func (r *Runner) RenderOffline() ([]int16, error) {
	var out []int16
	if !r.cfg.dryRun {
		out = make([]int16, 0, (r.length-r.tick)*r.timing.FramesPerTick()*2)
	}
	for !r.Done() {
		buf, err := r.Step()
		if err != nil {
			return out, err
		}
		out = append(out, buf...)
	}
	r.logDropped()
	return out, nil
}

// Play streams the song to player, paced by its buffer level. It returns
// when the song ends or ctl is stopped.
func (r *Runner) Play(player *ui.AudioPlayer, ctl *ui.PlaybackControl) error {
	tickTime := time.Second / time.Duration(r.timing.TickHz)
	last := time.Now()

	for !r.Done() && ctl.Wait() {
		buf, err := r.Step()
		if err != nil {
			return fmt.Errorf("cli: %w", err)
		}
		player.QueueSamples(buf)

		sleep := tickTime - time.Since(last)
		if level := player.BufferLevel(); level < adtMinBuffer {
			sleep = time.Duration(float64(sleep) * 0.9)
		} else if level > adtMaxBuffer {
			sleep = time.Duration(float64(sleep) * 1.1)
		}
		if sleep > time.Millisecond {
			time.Sleep(sleep)
		}
		last = time.Now()
	}
	r.logDropped()
	return nil
}

func (r *Runner) logDropped() {
	if n := r.backend.Dropped(); n > 0 && r.cfg.logger != nil {
		r.cfg.logger.Printf("Warning: %d register writes dropped", n)
	}
}
