package adapter

import (
	"log"

	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/emfm/cli"
	"github.com/user-none/emfm/emu"
	"github.com/user-none/emfm/script"
)

const (
	Name    = "emfm"
	Version = "0.1.0"

	ScreenWidth  = 320
	ScreenHeight = 224
)

// Button bit IDs.
const (
	buttonLowPass = 4
	buttonRestart = 7
)

const (
	optionZ80          = "z80_driver"
	optionLegacyVolume = "legacy_volume"
)

// Meter layout: one column per FM channel.
const (
	meterLeft   = 16
	meterPitch  = 48
	meterWidth  = 40
	meterBottom = ScreenHeight - 16
	meterHeight = 192
)

var _ emucore.Emulator = (*Core)(nil)

// Core plays a script one frame per tick and shows a level meter per FM
// channel. The song restarts when it ends.
type Core struct {
	song   *script.Script
	region emu.Region
	runner *cli.Runner

	z80       bool
	legacyVol bool
	lowPass   bool

	audio   []int16
	pixels  []byte
	buttons uint32
	failed  bool
}

// NewCore creates a core playing s.
func NewCore(s *script.Script, region emucore.Region) *Core {
	c := &Core{
		song:      s,
		region:    fromCoreRegion(region),
		legacyVol: true,
		lowPass:   true,
		pixels:    make([]byte, ScreenWidth*ScreenHeight*4),
	}
	c.restart()
	return c
}

func (c *Core) restart() {
	c.runner = cli.NewRunner(c.song,
		cli.WithRegion(c.region),
		cli.WithZ80(c.z80),
		cli.WithLegacyVolume(c.legacyVol),
	)
	c.runner.Board().SetLowPass(c.lowPass)
	c.failed = false
}

// RunFrame plays one tick.
func (c *Core) RunFrame() {
	frames := c.runner.Timing().FramesPerTick()
	if c.failed {
		c.audio = append(c.audio[:0], make([]int16, frames*2)...)
		return
	}
	if c.runner.Done() {
		c.restart()
	}
	buf, err := c.runner.Step()
	if err != nil {
		log.Printf("Warning: %v", err)
		c.failed = true
		c.audio = append(c.audio[:0], make([]int16, frames*2)...)
		return
	}
	c.audio = append(c.audio[:0], buf...)
	c.drawMeters()
}

func (c *Core) drawMeters() {
	for i := 0; i < len(c.pixels); i += 4 {
		c.pixels[i], c.pixels[i+1], c.pixels[i+2], c.pixels[i+3] = 0x10, 0x10, 0x18, 0xFF
	}
	ym := c.runner.Board().YM2612()
	for ch := 0; ch < 6; ch++ {
		loudest := uint8(127)
		for op := 0; op < 4; op++ {
			loudest = min(loudest, ym.TotalLevel(ch, op))
		}
		// Released channels show a baseline only
		h, r, g, b := 2, uint8(0x30), uint8(0x30), uint8(0x40)
		if ym.KeyState(ch) != 0 {
			h = max(2, int(127-loudest)*meterHeight/127)
			r, g, b = 0x20, 0xD0, 0x60
		}
		x0 := meterLeft + ch*meterPitch
		for y := meterBottom - h; y < meterBottom; y++ {
			row := y * ScreenWidth * 4
			for x := x0; x < x0+meterWidth; x++ {
				p := row + x*4
				c.pixels[p], c.pixels[p+1], c.pixels[p+2] = r, g, b
			}
		}
	}
}

// GetFramebuffer returns the meter display as RGBA.
func (c *Core) GetFramebuffer() []byte {
	return c.pixels
}

// GetFramebufferStride returns bytes per row.
func (c *Core) GetFramebufferStride() int {
	return ScreenWidth * 4
}

// GetActiveHeight returns the display height.
func (c *Core) GetActiveHeight() int {
	return ScreenHeight
}

// GetAudioSamples returns the stereo samples of the last frame.
func (c *Core) GetAudioSamples() []int16 {
	return c.audio
}

// SetInput handles the restart and low-pass buttons on their press edge.
func (c *Core) SetInput(player int, buttons uint32) {
	if player != 0 {
		return
	}
	pressed := buttons &^ c.buttons
	c.buttons = buttons
	if pressed&(1<<buttonRestart) != 0 {
		c.restart()
	}
	if pressed&(1<<buttonLowPass) != 0 {
		c.lowPass = !c.lowPass
		c.runner.Board().SetLowPass(c.lowPass)
	}
}

// GetRegion returns the current region.
func (c *Core) GetRegion() emucore.Region {
	return toCoreRegion(c.region)
}

// SetRegion switches clocks and restarts the song.
func (c *Core) SetRegion(region emucore.Region) {
	c.region = fromCoreRegion(region)
	c.restart()
}

// GetTiming returns the tick rate as the frame rate.
func (c *Core) GetTiming() emucore.Timing {
	scanlines := 262
	if c.region == emu.RegionPAL {
		scanlines = 313
	}
	return emucore.Timing{
		FPS:       c.runner.Timing().TickHz,
		Scanlines: scanlines,
	}
}

// SetOption applies a core option and restarts the song.
func (c *Core) SetOption(key string, value string) {
	switch key {
	case optionZ80:
		c.z80 = value == "true"
	case optionLegacyVolume:
		c.legacyVol = value == "true"
	default:
		return
	}
	c.restart()
}

// LowPass reports whether the output filter is on.
func (c *Core) LowPass() bool {
	return c.lowPass
}

// Runner returns the active runner.
func (c *Core) Runner() *cli.Runner {
	return c.runner
}

// Close is a no-op.
func (c *Core) Close() {}
