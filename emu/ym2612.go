package emu

// Envelope states for ADSR
const (
	egAttack  = 0
	egDecay   = 1
	egSustain = 2
	egRelease = 3
)

// Status port timing, in native samples.
const (
	busyDuration        = 2     // ~32 internal cycles
	statusDecayDuration = 13300 // ~250ms at the ~53kHz native rate
)

// ymOperator holds decoded register state for one operator.
type ymOperator struct {
	dt  uint8 // Detune (3-bit: bit2=sign, bits1-0=value)
	mul uint8 // Frequency multiplier (0=x0.5, 1-15=x1..x15)
	tl  uint8 // Total level (0=max vol, 127=min)
	rs  uint8 // Rate scaling
	ar  uint8 // Attack rate
	d1r uint8 // Decay rate
	d2r uint8 // Sustain rate
	d1l uint8 // Sustain level
	rr  uint8 // Release rate
	am  bool
	ssg uint8

	keyOn bool

	// Preview renderer state
	phase   float64 // cycles, wrapped to [0,1)
	egState uint8
	egAtten float64 // dB, 0=full volume
	prevOut [2]float64
}

// ymChannel holds decoded register state for one FM channel.
type ymChannel struct {
	op [4]ymOperator

	fNum  uint16
	block uint8

	// fnumHiLatch holds the $A4 write until the $A0 write commits it.
	fnumHiLatch uint8

	algorithm uint8
	feedback  uint8
	panL      bool
	panR      bool
	ams       uint8
	fms       uint8
}

// YM2612 is a register-level model of the OPN2. It decodes every port
// write into channel and operator state, keeps a readback mirror of all
// register bytes, and renders a floating point preview of the result.
// The preview is not cycle accurate.
type YM2612 struct {
	sampleRate  int
	clockHz     int
	nativeClock int // clockHz / 144

	ch [6]ymChannel

	// Address latches for Part I (ports 0/1) and Part II (ports 2/3)
	addrLatch [2]uint8

	// regs mirrors every data byte written, indexed [part][addr].
	regs [2][256]uint8

	dacEnable bool
	dacSample uint8

	lfoEnable bool
	lfoFreq   uint8

	ch3Mode uint8

	writes uint64 // data port writes accepted

	nativeSampleCount uint64
	resampAccum       int

	busyUntil        uint64
	lastStatus       uint8
	lastStatusSample uint64
}

// NewYM2612 creates a YM2612 running at clockHz and rendering at sampleRate.
func NewYM2612(clockHz, sampleRate int) *YM2612 {
	y := &YM2612{
		sampleRate:  sampleRate,
		clockHz:     clockHz,
		nativeClock: clockHz / 144,
	}
	y.Reset()
	return y
}

// Reset returns the chip to its power-on state.
func (y *YM2612) Reset() {
	y.ch = [6]ymChannel{}
	y.addrLatch = [2]uint8{}
	y.regs = [2][256]uint8{}
	y.dacEnable = false
	y.dacSample = 0x80 // Center value, no DC offset
	y.lfoEnable = false
	y.lfoFreq = 0
	y.ch3Mode = 0
	y.writes = 0
	y.busyUntil = 0
	y.lastStatus = 0
	for ch := range y.ch {
		y.ch[ch].panL = true
		y.ch[ch].panR = true
		for op := range y.ch[ch].op {
			y.ch[ch].op[op].egState = egRelease
			y.ch[ch].op[op].egAtten = maxAttenDB
		}
	}
}

// ReadPort reads from a YM2612 port (0-3).
// Ports 0/2: live status register (busy bit), cached for port 1/3
// Ports 1/3: return last status read from port 0/2, decaying to 0 after ~250ms
func (y *YM2612) ReadPort(port uint8) uint8 {
	if port == 0 || port == 2 {
		var status uint8
		if y.nativeSampleCount < y.busyUntil {
			status |= 0x80
		}
		y.lastStatus = status
		y.lastStatusSample = y.nativeSampleCount
		return status
	}
	if y.nativeSampleCount-y.lastStatusSample < statusDecayDuration {
		return y.lastStatus
	}
	return 0
}

// WritePort writes to a YM2612 port (0-3).
// Port 0: address latch for Part I
// Port 1: data write for Part I
// Port 2: address latch for Part II
// Port 3: data write for Part II
func (y *YM2612) WritePort(port uint8, val uint8) {
	switch port & 3 {
	case 0:
		y.addrLatch[0] = val
	case 1:
		y.writeRegister(0, y.addrLatch[0], val)
	case 2:
		y.addrLatch[1] = val
	case 3:
		y.writeRegister(1, y.addrLatch[1], val)
	}
}

// Register returns the last byte written to a register. Bit 8 of addr
// selects Part II.
func (y *YM2612) Register(addr uint16) uint8 {
	return y.regs[(addr>>8)&1][addr&0xFF]
}

// Writes returns the number of data writes accepted since reset.
func (y *YM2612) Writes() uint64 {
	return y.writes
}

// writeRegister dispatches a register write to the appropriate handler.
// part: 0 = Part I (channels 0-2), 1 = Part II (channels 3-5)
func (y *YM2612) writeRegister(part int, addr, val uint8) {
	y.regs[part][addr] = val
	y.writes++
	y.busyUntil = y.nativeSampleCount + busyDuration
	switch {
	case addr < 0x20:
		return
	case addr < 0x30:
		// Global registers are only decoded in Part I
		if part == 0 {
			y.writeGlobalRegister(addr, val)
		}
	case addr < 0xA0:
		y.writeOperatorRegister(part, addr, val)
	default:
		y.writeChannelRegister(part, addr, val)
	}
}

// writeGlobalRegister handles writes to registers $20-$2F.
func (y *YM2612) writeGlobalRegister(addr, val uint8) {
	switch addr {
	case 0x22:
		y.lfoEnable = val&0x08 != 0
		y.lfoFreq = val & 0x07
	case 0x27:
		y.ch3Mode = (val >> 6) & 0x03
	case 0x28:
		y.writeKeyOnOff(val)
	case 0x2A:
		y.dacSample = val
	case 0x2B:
		y.dacEnable = val&0x80 != 0
	}
}

// operatorOrder maps register slot bits to operator index.
// Register order is S1(0), S3(1), S2(2), S4(3) but we store as 0,1,2,3 = S1,S2,S3,S4.
var operatorOrder = [4]int{0, 2, 1, 3}

// writeOperatorRegister handles writes to registers $30-$9F.
func (y *YM2612) writeOperatorRegister(part int, addr, val uint8) {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return
	}
	op := &y.ch[chSlot+part*3].op[operatorOrder[(addr>>2)&0x03]]

	switch addr & 0xF0 {
	case 0x30:
		op.dt = (val >> 4) & 0x07
		op.mul = val & 0x0F
	case 0x40:
		op.tl = val & 0x7F
	case 0x50:
		op.rs = (val >> 6) & 0x03
		op.ar = val & 0x1F
	case 0x60:
		op.am = val&0x80 != 0
		op.d1r = val & 0x1F
	case 0x70:
		op.d2r = val & 0x1F
	case 0x80:
		op.d1l = (val >> 4) & 0x0F
		op.rr = val & 0x0F
	case 0x90:
		op.ssg = val & 0x0F
	}
}

// writeChannelRegister handles writes to registers $A0-$B6.
func (y *YM2612) writeChannelRegister(part int, addr, val uint8) {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return
	}
	ch := &y.ch[chSlot+part*3]

	switch {
	case addr >= 0xA0 && addr <= 0xA2:
		// F-Number LSB commits the latched MSB and block
		ch.block = (ch.fnumHiLatch >> 3) & 0x07
		ch.fNum = uint16(ch.fnumHiLatch&0x07)<<8 | uint16(val)
	case addr >= 0xA4 && addr <= 0xA6:
		ch.fnumHiLatch = val
	case addr >= 0xB0 && addr <= 0xB2:
		ch.algorithm = val & 0x07
		ch.feedback = (val >> 3) & 0x07
	case addr >= 0xB4 && addr <= 0xB6:
		ch.panL = val&0x80 != 0
		ch.panR = val&0x40 != 0
		ch.ams = (val >> 4) & 0x03
		ch.fms = val & 0x07
	}
}

// writeKeyOnOff handles the Key On/Off register ($28).
// val bits 0-2: channel (0-2=Part I, 4-6=Part II)
// val bits 4-7: operator enable (bit4=S1, bit5=S2, bit6=S3, bit7=S4)
func (y *YM2612) writeKeyOnOff(val uint8) {
	chLow := int(val & 0x03)
	if chLow >= 3 {
		return
	}
	chIdx := chLow
	if val&0x04 != 0 {
		chIdx += 3
	}

	ch := &y.ch[chIdx]
	for i := range ch.op {
		on := val&(0x10<<uint(i)) != 0
		op := &ch.op[i]
		if on && !op.keyOn {
			op.keyOn = true
			op.phase = 0
			op.egState = egAttack
		} else if !on && op.keyOn {
			op.keyOn = false
			op.egState = egRelease
		}
	}
}

// KeyState returns the keyed operators of channel ch as bits 0-3 (S1-S4).
func (y *YM2612) KeyState(ch int) uint8 {
	var mask uint8
	for i, op := range y.ch[ch].op {
		if op.keyOn {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// Frequency returns the committed F-number and block of channel ch.
func (y *YM2612) Frequency(ch int) (fnum uint16, block uint8) {
	return y.ch[ch].fNum, y.ch[ch].block
}

// Algorithm returns the algorithm and feedback of channel ch.
func (y *YM2612) Algorithm(ch int) (alg, fb uint8) {
	return y.ch[ch].algorithm, y.ch[ch].feedback
}

// Pan returns the output enables of channel ch.
func (y *YM2612) Pan(ch int) (left, right bool) {
	return y.ch[ch].panL, y.ch[ch].panR
}

// TotalLevel returns the decoded TL of operator op (0-3 = S1-S4) on ch.
func (y *YM2612) TotalLevel(ch, op int) uint8 {
	return y.ch[ch].op[op].tl
}

// DAC returns the DAC enable and the last sample written.
func (y *YM2612) DAC() (enabled bool, sample uint8) {
	return y.dacEnable, y.dacSample
}

// LFO returns the LFO enable and rate.
func (y *YM2612) LFO() (enabled bool, rate uint8) {
	return y.lfoEnable, y.lfoFreq
}
