package fm

import (
	"errors"
	"testing"
)

func TestBase_UrgentOrdering(t *testing.T) {
	b := NewBase(6, true)
	b.Commit(0xA, 1)
	b.Commit(0xB, 2)
	b.CommitUrgent(0x1, 3)
	b.CommitUrgent(0x2, 4)

	got := drainAddrs(b)
	want := []uint32{0x2, 0x1, 0xA, 0xB}
	if !equalAddrs(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBase_UrgentUnderFlushBarrier(t *testing.T) {
	b := NewBase(6, true)
	b.BeginFlush()
	b.Commit(0xA, 1)
	b.Commit(0xB, 2)
	b.CommitUrgent(0x1, 3)
	b.EndFlush()

	got := drainAddrs(b)
	want := []uint32{0xA, 0xB, 0x1}
	if !equalAddrs(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBase_SkipWrites(t *testing.T) {
	b := NewBase(6, true)
	b.SetSkipWrites(true)
	b.Stage(0x30, 1)
	b.Commit(0x28, 0xF0)
	b.CommitUrgent(0x2A, 0x80)
	if b.Pending() != 0 {
		t.Errorf("expected no writes while skipping, got %d", b.Pending())
	}
	if b.Pool().Dirty(0x30) {
		t.Error("stage should be ignored while skipping")
	}
	b.SetSkipWrites(false)
	b.Commit(0x28, 0xF0)
	if b.Pending() != 1 {
		t.Errorf("expected 1 write, got %d", b.Pending())
	}
}

func TestBase_DumpCapture(t *testing.T) {
	var wl WriteLog
	b := NewBase(6, true, WithDump(&wl))
	b.Commit(0x28, 0xF1)
	b.CommitUrgent(0x2A, 0x80)
	b.SetDump(nil)
	b.Commit(0x28, 0x01)

	got := wl.Take()
	if len(got) != 2 {
		t.Fatalf("expected 2 captured writes, got %d", len(got))
	}
	if got[0] != (RegisterWrite{Addr: 0x28, Val: 0xF1}) || got[1] != (RegisterWrite{Addr: 0x2A, Val: 0x80}) {
		t.Errorf("unexpected capture %+v", got)
	}
	if wl.Len() != 0 {
		t.Error("Take should empty the log")
	}
}

func TestBase_StageTwiceEmitsOnce(t *testing.T) {
	b := NewBase(6, true)
	b.Stage(0x40, 0x20)
	b.Stage(0x40, 0x20)
	n := 0
	for addr, v := range b.Pool().Changed() {
		b.Commit(uint32(addr), uint16(v))
		b.Pool().Settle(addr)
		n++
	}
	b.Stage(0x40, 0x20)
	for range b.Pool().Changed() {
		n++
	}
	if n != 1 {
		t.Errorf("expected exactly one write, got %d", n)
	}
}

func TestBase_ResetClearsState(t *testing.T) {
	b := NewBase(3, false)
	b.Commit(0x28, 0)
	b.Stage(0x30, 1)
	b.BeginFlush()
	b.LastBusy = 0x80
	b.Delay = 5
	b.Chan[1].Vol = 3

	b.Reset()
	if b.Pending() != 0 || b.FlushFirst() || b.LastBusy != 0 || b.Delay != 0 {
		t.Error("reset left dispatch state behind")
	}
	if b.Pool().Pending(0x30) != NoValue {
		t.Error("reset should clear the pool")
	}
	if b.Chan[1].Vol != 127 {
		t.Errorf("expected channel volume 127, got %d", b.Chan[1].Vol)
	}
}

func TestBase_ChannelRange(t *testing.T) {
	b := NewBase(6, true)
	if _, err := b.Channel(6); !errors.Is(err, ErrChannelRange) {
		t.Errorf("expected ErrChannelRange, got %v", err)
	}
	c, err := b.Channel(5)
	if err != nil || c != &b.Chan[5] {
		t.Errorf("expected channel 5, got %v %v", c, err)
	}
}

func TestBase_DefaultsAndOptions(t *testing.T) {
	b := NewBase(1, false)
	if !b.LegacyAlwaysSetVolume() {
		t.Error("legacy volume should default on")
	}
	if b.Gain(0, MaxVolume) != 1 {
		t.Error("default curve should give unity gain at max volume")
	}
	b = NewBase(1, false, WithLegacyVolume(false), WithCurve(LogCurve{StepDB: 1.5}))
	if b.LegacyAlwaysSetVolume() {
		t.Error("legacy volume option ignored")
	}
	if got := b.MapVelocity(0, 64.0/127.0); got != 124 {
		t.Errorf("expected 124 with 1.5 dB steps, got %d", got)
	}
}
