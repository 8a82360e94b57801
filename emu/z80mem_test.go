package emu

import "testing"

func TestZ80Driver_WritesRunOnDemand(t *testing.T) {
	board := NewSoundBoard(RegionNTSC)
	d := NewZ80Driver(board)

	d.WritePort(0, 0x22)
	d.WritePort(1, 0x0B)
	if board.YM2612().Writes() != 0 {
		t.Fatal("writes must not reach the chip before Run")
	}
	if d.Pending() != 2*storeLen {
		t.Errorf("expected %d bytes of code, got %d", 2*storeLen, d.Pending())
	}

	// LD A,n (7) + LD (nn),A (13) per store
	if cycles := d.Run(); cycles != 40 {
		t.Errorf("expected 40 T-states, got %d", cycles)
	}
	if on, rate := board.YM2612().LFO(); !on || rate != 3 {
		t.Errorf("expected LFO rate 3, got %v %d", on, rate)
	}
	if d.Run() != 0 {
		t.Error("empty program should cost nothing")
	}
	if d.Cycles() != 40 {
		t.Errorf("expected 40 total T-states, got %d", d.Cycles())
	}
}

func TestZ80Driver_ReadPortThroughCPU(t *testing.T) {
	board := NewSoundBoard(RegionNTSC)
	d := NewZ80Driver(board)

	d.WritePort(2, 0xB4)
	d.WritePort(3, 0x40)
	status := d.ReadPort(0)
	if status&0x80 == 0 {
		t.Errorf("expected busy status, got 0x%02X", status)
	}
	if l, r := board.YM2612().Pan(3); l || !r {
		t.Error("pending writes should run before the read")
	}
}

func TestZ80Driver_LargeBatchesSplit(t *testing.T) {
	board := NewSoundBoard(RegionNTSC)
	d := NewZ80Driver(board)

	for i := 0; i < 1000; i++ {
		d.WritePort(0, 0x40)
		d.WritePort(1, uint8(i&0x7F))
	}
	if d.Pending() > programLimit {
		t.Fatalf("program exceeds RAM window: %d bytes", d.Pending())
	}
	d.Run()
	if got := board.YM2612().Writes(); got != 1000 {
		t.Errorf("expected 1000 chip writes, got %d", got)
	}
	if got := board.YM2612().Register(0x40); got != uint8(999&0x7F) {
		t.Errorf("expected last TL 0x%02X, got 0x%02X", 999&0x7F, got)
	}
}

func TestZ80Memory_Map(t *testing.T) {
	board := NewSoundBoard(RegionNTSC)
	m := NewZ80Memory(board)

	m.Write(0x0010, 0xAA)
	if m.Read(0x2010) != 0xAA {
		t.Error("RAM mirror should alias 0x0000")
	}
	if m.Read(0x6000) != 0xFF || m.In(0x10) != 0xFF {
		t.Error("unmapped reads should return 0xFF")
	}
	m.Write(0x4000, 0x2B)
	m.Write(0x4001, 0x80)
	if on, _ := board.YM2612().DAC(); !on {
		t.Error("YM2612 port window not mapped")
	}
}
