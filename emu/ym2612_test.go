package emu

import "testing"

func writeReg(y *YM2612, part int, addr, val uint8) {
	y.WritePort(uint8(part*2), addr)
	y.WritePort(uint8(part*2+1), val)
}

func TestYM2612_InitialState(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	for ch := 0; ch < 6; ch++ {
		if l, r := y.Pan(ch); !l || !r {
			t.Errorf("ch%d: expected L+R panning enabled", ch)
		}
		for op := 0; op < 4; op++ {
			if y.ch[ch].op[op].egState != egRelease {
				t.Errorf("ch%d op%d: expected egRelease, got %d", ch, op, y.ch[ch].op[op].egState)
			}
		}
	}
	if y.ReadPort(0) != 0 {
		t.Errorf("expected status 0, got 0x%02X", y.ReadPort(0))
	}
	if _, s := y.DAC(); s != 0x80 {
		t.Errorf("expected DAC center 0x80, got 0x%02X", s)
	}
}

func TestYM2612_AddressLatch(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	y.WritePort(0, 0x30)
	if y.addrLatch[0] != 0x30 {
		t.Errorf("expected Part I latch 0x30, got 0x%02X", y.addrLatch[0])
	}
	y.WritePort(2, 0x40)
	if y.addrLatch[1] != 0x40 {
		t.Errorf("expected Part II latch 0x40, got 0x%02X", y.addrLatch[1])
	}
}

func TestYM2612_OperatorRegisterSlotMapping(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	// Register slots S1, S3, S2, S4 land on operators 0, 2, 1, 3
	writeReg(y, 0, 0x40, 10)
	writeReg(y, 0, 0x44, 20)
	writeReg(y, 0, 0x48, 30)
	writeReg(y, 0, 0x4C, 40)

	want := []uint8{10, 30, 20, 40}
	for op, w := range want {
		if got := y.TotalLevel(0, op); got != w {
			t.Errorf("op%d: expected TL %d, got %d", op, w, got)
		}
	}
}

func TestYM2612_OperatorRegisterPartII(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 1, 0x32, 0x35)
	op := y.ch[5].op[0]
	if op.dt != 3 || op.mul != 5 {
		t.Errorf("ch5 op0: expected dt=3 mul=5, got dt=%d mul=%d", op.dt, op.mul)
	}
	if y.Register(0x132) != 0x35 {
		t.Errorf("expected mirror 0x35, got 0x%02X", y.Register(0x132))
	}
}

func TestYM2612_InvalidChannelSlot(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0x43, 0x11)
	for ch := 0; ch < 6; ch++ {
		for op := 0; op < 4; op++ {
			if y.TotalLevel(ch, op) != 0 {
				t.Fatalf("slot 3 write leaked into ch%d op%d", ch, op)
			}
		}
	}
	if y.Register(0x43) != 0x11 {
		t.Error("mirror should still record the byte")
	}
}

func TestYM2612_AllOperatorRegisters(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0x51, 0xDF) // RS=3 AR=31
	writeReg(y, 0, 0x61, 0x8A) // AM, D1R=10
	writeReg(y, 0, 0x71, 0x07)
	writeReg(y, 0, 0x81, 0x5C) // D1L=5 RR=12
	writeReg(y, 0, 0x91, 0x0B)

	op := y.ch[1].op[0]
	if op.rs != 3 || op.ar != 31 {
		t.Errorf("expected rs=3 ar=31, got rs=%d ar=%d", op.rs, op.ar)
	}
	if !op.am || op.d1r != 10 {
		t.Errorf("expected am d1r=10, got am=%v d1r=%d", op.am, op.d1r)
	}
	if op.d2r != 7 || op.d1l != 5 || op.rr != 12 || op.ssg != 0x0B {
		t.Errorf("unexpected decode %+v", op)
	}
}

func TestYM2612_FrequencyLatch(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0xA4, 0x24)
	if fnum, block := y.Frequency(0); fnum != 0 || block != 0 {
		t.Errorf("MSB alone must not commit, got %d/%d", fnum, block)
	}
	writeReg(y, 0, 0xA0, 0x3A)
	if fnum, block := y.Frequency(0); fnum != 0x43A || block != 4 {
		t.Errorf("expected 0x43A/4, got 0x%03X/%d", fnum, block)
	}
}

func TestYM2612_ChannelRegisters(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 1, 0xB2, 0x3D) // FB=7 ALG=5
	writeReg(y, 1, 0xB6, 0x80) // L only
	if alg, fb := y.Algorithm(5); alg != 5 || fb != 7 {
		t.Errorf("expected alg 5 fb 7, got %d %d", alg, fb)
	}
	if l, r := y.Pan(5); !l || r {
		t.Errorf("expected left only, got %v %v", l, r)
	}
}

func TestYM2612_KeyOnOff(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0x28, 0xF1)
	if got := y.KeyState(1); got != 0xF {
		t.Errorf("expected all operators keyed, got 0x%X", got)
	}
	writeReg(y, 0, 0x28, 0x51) // S1 and S3
	if got := y.KeyState(1); got != 0x5 {
		t.Errorf("expected S1+S3 keyed, got 0x%X", got)
	}
	if y.ch[1].op[1].egState != egRelease {
		t.Error("keyed-off operator should be releasing")
	}
}

func TestYM2612_KeyOnPartII(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0x28, 0xF6)
	if y.KeyState(5) != 0xF {
		t.Error("expected ch5 keyed on")
	}
	writeReg(y, 0, 0x28, 0xF3)
	for ch := 0; ch < 5; ch++ {
		if y.KeyState(ch) != 0 {
			t.Errorf("invalid channel code keyed ch%d", ch)
		}
	}
}

func TestYM2612_GlobalRegistersOnlyPartI(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 1, 0x2B, 0x80)
	if on, _ := y.DAC(); on {
		t.Error("Part II must not decode global registers")
	}
	writeReg(y, 0, 0x2B, 0x80)
	writeReg(y, 0, 0x2A, 0x12)
	if on, s := y.DAC(); !on || s != 0x12 {
		t.Errorf("expected DAC on with 0x12, got %v 0x%02X", on, s)
	}
	writeReg(y, 0, 0x22, 0x0D)
	if on, rate := y.LFO(); !on || rate != 5 {
		t.Errorf("expected LFO rate 5, got %v %d", on, rate)
	}
}

func TestYM2612_StatusBusy(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0x30, 0x01)
	if y.ReadPort(0)&0x80 == 0 {
		t.Error("expected busy after data write")
	}
	if y.ReadPort(1)&0x80 == 0 {
		t.Error("port 1 should return the cached status")
	}
	y.Render(10)
	if y.ReadPort(0)&0x80 != 0 {
		t.Error("busy should clear once the chip has run")
	}
	if y.Writes() != 1 {
		t.Errorf("expected 1 write, got %d", y.Writes())
	}
}

func TestYM2612_SilenceWhenNoKeysPressed(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	for i, s := range y.Render(256) {
		if s != 0 {
			t.Fatalf("sample %d: expected silence, got %d", i, s)
		}
	}
}

func TestYM2612_RenderTone(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0xB0, 0x07) // alg 7
	writeReg(y, 0, 0x30, 0x01) // MUL 1 on S1
	writeReg(y, 0, 0x40, 0x00) // TL 0
	writeReg(y, 0, 0x50, 0x1F) // AR 31
	for _, a := range []uint8{0x44, 0x48, 0x4C} {
		writeReg(y, 0, a, 0x7F)
	}
	writeReg(y, 0, 0xA4, 0x24)
	writeReg(y, 0, 0xA0, 0x3A)
	writeReg(y, 0, 0x28, 0xF0)

	buf := y.Render(480)
	if len(buf) != 960 {
		t.Fatalf("expected 960 samples, got %d", len(buf))
	}
	var peak int16
	crossings := 0
	for i := 2; i < len(buf); i += 2 {
		if buf[i] > peak {
			peak = buf[i]
		}
		if (buf[i-2] < 0) != (buf[i] < 0) {
			crossings++
		}
		if buf[i] != buf[i+1] {
			t.Fatalf("centered channel should be identical on both sides at %d", i)
		}
	}
	if peak < 3000 {
		t.Errorf("expected a loud tone, peak %d", peak)
	}
	// 440 Hz over 10 ms is about 9 zero crossings
	if crossings < 7 || crossings > 11 {
		t.Errorf("unexpected zero crossings %d", crossings)
	}
}

func TestYM2612_RenderDAC(t *testing.T) {
	y := NewYM2612(7670453, 48000)

	writeReg(y, 0, 0x2B, 0x80)
	writeReg(y, 0, 0x2A, 0xC0)
	buf := y.Render(4)
	want := int16(channelScale / 2)
	for i, s := range buf {
		if s != want {
			t.Fatalf("sample %d: expected %d, got %d", i, want, s)
		}
	}
}

func TestYM2612_KeyCode(t *testing.T) {
	tests := []struct {
		fnum  uint16
		block uint8
		want  uint8
	}{
		{0x000, 0, 0},
		{0x400, 0, 2},
		{0x480, 0, 3},
		{0x380, 0, 1},
		{0x43A, 4, 18},
	}
	for _, tt := range tests {
		if got := computeKeyCode(tt.fnum, tt.block); got != tt.want {
			t.Errorf("fnum 0x%03X block %d: expected %d, got %d", tt.fnum, tt.block, tt.want, got)
		}
	}
}
