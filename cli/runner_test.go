package cli

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/user-none/emfm/emu"
	"github.com/user-none/emfm/fm"
	"github.com/user-none/emfm/script"
	"github.com/user-none/emfm/vgm"
)

const toneScript = `
	instrument(0, {alg = 7, ops = {{tl = 0}, {tl = 127}, {tl = 127}, {tl = 127}}})
	note_on(0, 69)
	wait(30)
	note_off(0)
`

func compile(t *testing.T, src string) *script.Script {
	t.Helper()
	s, err := script.Compile("test.lua", src)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func peak(samples []int16) int {
	p := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		p = max(p, v)
	}
	return p
}

func TestRunner_RenderOffline(t *testing.T) {
	r := NewRunner(compile(t, toneScript), WithTail(0), WithLogger(quietLogger()))
	// note_off lands on tick 30
	if r.Length() != 31 {
		t.Fatalf("expected 31 ticks, got %d", r.Length())
	}

	out, err := r.RenderOffline()
	if err != nil {
		t.Fatal(err)
	}
	if want := 31 * emu.NTSCTiming.FramesPerTick() * 2; len(out) != want {
		t.Errorf("expected %d samples, got %d", want, len(out))
	}
	if p := peak(out); p < 1000 {
		t.Errorf("expected an audible tone, peak %d", p)
	}
	if !r.Done() || r.Tick() != 31 {
		t.Errorf("expected done at tick 31, got %d", r.Tick())
	}

	ym := r.Board().YM2612()
	if fnum, block := ym.Frequency(0); fnum != 0x43A || block != 4 {
		t.Errorf("expected A4 at 0x43A/4, got 0x%03X/%d", fnum, block)
	}
	if ym.KeyState(0) != 0 {
		t.Error("channel should be keyed off at the end")
	}
	if r.Backend().Pending() != 0 {
		t.Errorf("expected an empty queue, got %d", r.Backend().Pending())
	}
}

func TestRunner_DefaultTailIsOneSecond(t *testing.T) {
	r := NewRunner(compile(t, `wait(10)`), WithRegion(emu.RegionPAL))
	if r.Length() != 60 {
		t.Errorf("expected 10 + 50 ticks, got %d", r.Length())
	}
	if r.Timing() != emu.PALTiming {
		t.Error("expected PAL timing")
	}
}

func TestRunner_MaxTicks(t *testing.T) {
	r := NewRunner(compile(t, toneScript), WithMaxTicks(5))
	out, err := r.RenderOffline()
	if err != nil {
		t.Fatal(err)
	}
	if want := 5 * emu.NTSCTiming.FramesPerTick() * 2; len(out) != want {
		t.Errorf("expected %d samples, got %d", want, len(out))
	}
}

func TestRunner_Z80MatchesDirect(t *testing.T) {
	direct := NewRunner(compile(t, toneScript), WithTail(0))
	viaZ80 := NewRunner(compile(t, toneScript), WithTail(0), WithZ80(true))
	if direct.Driver() != nil || viaZ80.Driver() == nil {
		t.Fatal("driver should exist only in Z80 mode")
	}

	for i := 0; i < 10; i++ {
		if _, err := direct.Step(); err != nil {
			t.Fatal(err)
		}
		if _, err := viaZ80.Step(); err != nil {
			t.Fatal(err)
		}
	}

	a, b := direct.Board().YM2612(), viaZ80.Board().YM2612()
	for addr := uint16(0x22); addr < 0x1B8; addr++ {
		if addr == 0x28 {
			continue
		}
		if a.Register(addr) != b.Register(addr) {
			t.Errorf("register %03X: direct 0x%02X, z80 0x%02X", addr, a.Register(addr), b.Register(addr))
		}
	}
	if a.KeyState(0) != 0xF || b.KeyState(0) != 0xF {
		t.Errorf("expected channel 0 keyed in both, got %X %X", a.KeyState(0), b.KeyState(0))
	}
	if viaZ80.Driver().Cycles() == 0 {
		t.Error("expected Z80 T-states to be counted")
	}
	if viaZ80.Driver().Pending() != 0 {
		t.Error("driver program should have run")
	}
}

func TestRunner_PSGEvents(t *testing.T) {
	r := NewRunner(compile(t, `psg(0x90) psg(0x8F) psg(0x00) wait(5)`), WithTail(0))
	out, err := r.RenderOffline()
	if err != nil {
		t.Fatal(err)
	}
	if peak(out) == 0 {
		t.Error("expected PSG tone output")
	}
}

func TestRunner_DryRun(t *testing.T) {
	r := NewRunner(compile(t, toneScript), WithDryRun(true), WithTail(0))
	pending := r.Backend().Pending()
	out, err := r.RenderOffline()
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("dry run should not render, got %d samples", len(out))
	}
	if r.Backend().Pending() != pending {
		t.Error("dry run should not queue writes")
	}
	if r.Board().YM2612().Writes() != 0 {
		t.Error("dry run should not touch the chip")
	}
	if !r.Done() {
		t.Error("expected done")
	}
}

func TestRunner_ScriptError(t *testing.T) {
	r := NewRunner(compile(t, `note_on(9, 60)`), WithLogger(quietLogger()))
	_, err := r.RenderOffline()
	if !errors.Is(err, fm.ErrChannelRange) {
		t.Errorf("expected channel range error, got %v", err)
	}
}

func TestRunner_Capture(t *testing.T) {
	timing := emu.NTSCTiming
	w := vgm.NewWriter(timing.YMClockHz, timing.Z80ClockHz, timing.TickHz)
	r := NewRunner(compile(t, toneScript+`psg(0x9F)`), WithTail(0), WithCapture(w))
	if _, err := r.RenderOffline(); err != nil {
		t.Fatal(err)
	}
	if w.Samples() != 31*735 {
		t.Errorf("expected %d samples, got %d", 31*735, w.Samples())
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	f, err := vgm.Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Commands) == 0 {
		t.Fatal("expected captured commands")
	}
	if c := f.Commands[0]; c.Chip != vgm.ChipYM2612 || c.Addr != 0x22 || c.Val != 0 {
		t.Errorf("expected LFO reset first, got %+v", c)
	}

	var keyOn, psg bool
	for _, c := range f.Commands {
		if c.Chip == vgm.ChipYM2612 && c.Addr == 0x28 && c.Val == 0xF0 {
			keyOn = true
		}
		if c.Chip == vgm.ChipSN76489 && c.Val == 0x9F {
			psg = true
			if c.Sample != 30*735 {
				t.Errorf("PSG write at sample %d, expected %d", c.Sample, 30*735)
			}
		}
	}
	if !keyOn || !psg {
		t.Errorf("missing captured writes: key on %v psg %v", keyOn, psg)
	}
}

func TestEncodeWAV(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, []int16{1, -1, 0x1234, 0}, 48000); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != 44+8 {
		t.Fatalf("expected 52 bytes, got %d", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Error("bad chunk ids")
	}
	le := binary.LittleEndian
	if le.Uint32(b[4:]) != 44 || le.Uint16(b[20:]) != 1 || le.Uint16(b[22:]) != 2 {
		t.Error("bad RIFF size or format")
	}
	if le.Uint32(b[24:]) != 48000 || le.Uint32(b[28:]) != 192000 || le.Uint16(b[32:]) != 4 || le.Uint16(b[34:]) != 16 {
		t.Error("bad rate fields")
	}
	if le.Uint32(b[40:]) != 8 || int16(le.Uint16(b[46:])) != -1 || le.Uint16(b[48:]) != 0x1234 {
		t.Error("bad data chunk")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeWAV_WriteError(t *testing.T) {
	if err := EncodeWAV(failWriter{}, []int16{0, 0}, 48000); err == nil {
		t.Error("expected write error")
	}
}
