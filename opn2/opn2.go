// Package opn2 drives a YM2612 (OPN2) through the shared fm dispatch core.
//
// A Backend turns musical commands (notes, instruments, volume, pan,
// portamento) into register writes. Register state goes through the diff
// pool so unchanged values are never rewritten; strobes such as key on/off
// and DAC samples are committed directly. The queue is consumed either all
// at once with Flush or clock-paced with Acquire.
package opn2

import (
	"fmt"

	"github.com/user-none/emfm/fm"
)

const (
	// NumChannels is the number of FM channels on the chip.
	NumChannels = 6

	// ClockNTSC is the YM2612 master clock on NTSC hardware.
	ClockNTSC = 7670453

	// DACChannel is the channel replaced by the DAC when it is enabled.
	DACChannel = 5
)

// Global register addresses.
const (
	regLFO      = 0x22
	regTimerCtl = 0x27
	regKeyOnOff = 0x28
	regDACData  = 0x2A
	regDACCtl   = 0x2B
)

// Per-channel and per-operator register bases.
const (
	regDTMul  = 0x30
	regTL     = 0x40
	regRSAR   = 0x50
	regAMDR   = 0x60
	regD2R    = 0x70
	regSLRR   = 0x80
	regSSG    = 0x90
	regFnumLo = 0xA0
	regFnumHi = 0xA4
	regFBAlg  = 0xB0
	regPanAMS = 0xB4
)

// Port access costs in chip clocks, used by Acquire.
const (
	addrDelay = 2
	dataDelay = 32
)

// PortWriter is the chip side of the bus. Ports 0 and 2 latch an address
// for part I and part II, ports 1 and 3 write data. Reading port 0 returns
// the status byte.
type PortWriter interface {
	WritePort(port uint8, val uint8)
	ReadPort(port uint8) uint8
}

type config struct {
	clock int
	base  []fm.Option
}

// Option configures a Backend.
type Option func(*config)

// WithClock sets the chip master clock in Hz.
func WithClock(hz int) Option {
	return func(c *config) {
		c.clock = hz
	}
}

// WithBaseOptions passes options through to the dispatch core.
func WithBaseOptions(opts ...fm.Option) Option {
	return func(c *config) {
		c.base = append(c.base, opts...)
	}
}

// Backend is a YM2612 register writer.
type Backend struct {
	*fm.Base

	clock int

	velVol     [NumChannels]int
	portaNote  [NumChannels]int
	portaSpeed [NumChannels]int

	dacEnabled bool
	lfo        uint8
}

// New creates a Backend in its reset state.
func New(opts ...Option) *Backend {
	cfg := config{clock: ClockNTSC}
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Backend{
		Base:  fm.NewBase(NumChannels, true, cfg.base...),
		clock: cfg.clock,
	}
	b.Reset()
	return b
}

// Clock returns the chip master clock in Hz.
func (b *Backend) Clock() int {
	return b.clock
}

// Reset clears all dispatch state and queues the power-on register set:
// LFO off, timers off, DAC off, every channel keyed off and panned center.
//
// The flush barrier stays up until the queue has been consumed once, so an
// early DAC sample cannot overtake the initial writes.
func (b *Backend) Reset() {
	b.Base.Reset()
	for i := range b.velVol {
		b.velVol[i] = fm.MaxVolume
		b.portaNote[i] = 0
		b.portaSpeed[i] = 0
	}
	b.dacEnabled = false
	b.lfo = 0

	b.BeginFlush()
	b.Commit(regLFO, 0)
	b.Commit(regTimerCtl, 0)
	b.Commit(regDACCtl, 0)
	for ch := 0; ch < NumChannels; ch++ {
		b.Commit(regKeyOnOff, uint16(keyOnOffset(ch)))
	}
	b.Pool().Stage(regLFO, 0)
	b.Pool().Settle(regLFO)
	for ch := 0; ch < NumChannels; ch++ {
		b.stageChannel(ch)
	}
	b.emitChanged()
}

func (b *Backend) channel(op string, ch int) (*fm.Channel, error) {
	c, err := b.Channel(ch)
	if err != nil {
		return nil, fmt.Errorf("opn2: %s channel %d: %w", op, ch, err)
	}
	return c, nil
}

// SetInstrument loads patch p as instrument ins on channel ch.
func (b *Backend) SetInstrument(ch, ins int, p fm.Patch) error {
	c, err := b.channel("instrument", ch)
	if err != nil {
		return err
	}
	if p.Alg >= fm.NumAlgorithms {
		return fmt.Errorf("opn2: instrument %d: %w", ins, fm.ErrAlgorithmRange)
	}
	c.State = p
	c.Ins = ins
	c.InsChanged = true
	return nil
}

// NoteOn starts note on channel ch with velocity vel in [0,1]. A sounding
// channel is keyed off and on again in the same tick.
func (b *Backend) NoteOn(ch, note int, vel float64) error {
	c, err := b.channel("note on", ch)
	if err != nil {
		return err
	}
	if c.Active {
		c.KeyOff = true
	}
	b.velVol[ch] = b.MapVelocity(ch, vel)
	b.updateOutVol(ch)
	b.setNote(ch, note)
	c.InPorta = false
	c.PortaPause = false
	c.Active = true
	c.KeyOn = true
	if b.LegacyAlwaysSetVolume() {
		for slot := 0; slot < fm.NumOperators; slot++ {
			b.Pool().Invalidate(opAddr(ch, slot, regTL))
		}
	}
	return nil
}

// NoteOff releases channel ch.
func (b *Backend) NoteOff(ch int) error {
	c, err := b.channel("note off", ch)
	if err != nil {
		return err
	}
	c.Active = false
	c.KeyOn = false
	c.KeyOff = true
	c.InPorta = false
	return nil
}

// SetNote changes the pitch of channel ch without retriggering it.
func (b *Backend) SetNote(ch, note int) error {
	if _, err := b.channel("note", ch); err != nil {
		return err
	}
	b.setNote(ch, note)
	return nil
}

func (b *Backend) setNote(ch, note int) {
	c := &b.Chan[ch]
	if note < 0 {
		note = 0
	}
	if note > maxNote {
		note = maxNote
	}
	c.Note = note
	c.BaseFreq = LinearFreq(noteCents(note, 0), b.clock)
	freq := LinearFreq(noteCents(note, c.Pitch), b.clock)
	if freq != c.Freq || c.PortaPause {
		c.Freq = freq
		c.FreqChanged = true
	}
}

// SetPitch offsets channel ch by pitch cents.
func (b *Backend) SetPitch(ch, pitch int) error {
	c, err := b.channel("pitch", ch)
	if err != nil {
		return err
	}
	if c.Pitch == pitch {
		return nil
	}
	c.Pitch = pitch
	if !c.InPorta {
		c.Freq = LinearFreq(noteCents(c.Note, pitch), b.clock)
		c.FreqChanged = true
	}
	return nil
}

// SetVolume sets the channel volume, 0-127.
func (b *Backend) SetVolume(ch, vol int) error {
	c, err := b.channel("volume", ch)
	if err != nil {
		return err
	}
	c.Vol = clamp(vol, 0, fm.MaxVolume)
	b.updateOutVol(ch)
	return nil
}

// SetVelocity rescales channel ch as if its note had been struck at vel.
func (b *Backend) SetVelocity(ch int, vel float64) error {
	if _, err := b.channel("velocity", ch); err != nil {
		return err
	}
	b.velVol[ch] = b.MapVelocity(ch, vel)
	b.updateOutVol(ch)
	return nil
}

func (b *Backend) updateOutVol(ch int) {
	c := &b.Chan[ch]
	c.OutVol = c.Vol * b.velVol[ch] / fm.MaxVolume
}

// SetPortamento glides channel ch toward target at speed linear frequency
// units per tick. A speed of zero jumps straight to the target.
func (b *Backend) SetPortamento(ch, target, speed int) error {
	c, err := b.channel("portamento", ch)
	if err != nil {
		return err
	}
	target = clamp(target, 0, maxNote)
	if speed <= 0 {
		c.InPorta = false
		b.setNote(ch, target)
		return nil
	}
	b.portaNote[ch] = target
	b.portaSpeed[ch] = speed
	c.InPorta = true
	return nil
}

// SetOpMask enables operators OP1..OP4 by bit. A sounding channel is
// re-keyed with the new mask on the next tick.
func (b *Backend) SetOpMask(ch int, mask uint8) error {
	c, err := b.channel("operator mask", ch)
	if err != nil {
		return err
	}
	c.SetOpMask(mask)
	return nil
}

// SetPan sets the stereo outputs of channel ch.
func (b *Backend) SetPan(ch int, left, right bool) error {
	c, err := b.channel("pan", ch)
	if err != nil {
		return err
	}
	c.SetPan(left, right)
	return nil
}

// SetLFO enables the chip LFO at rate 0-7, or disables it.
func (b *Backend) SetLFO(on bool, rate uint8) {
	b.lfo = 0
	if on {
		b.lfo = 0x08 | rate&7
	}
	b.Stage(regLFO, int16(b.lfo))
}

// HardReset requests an envelope reset on channel ch before its next
// key-on. It reports false once the key-on window has closed.
func (b *Backend) HardReset(ch int) (bool, error) {
	c, err := b.channel("hard reset", ch)
	if err != nil {
		return false, err
	}
	return c.RequestHardReset(), nil
}

// EnableDAC switches channel 6 between FM and the DAC.
func (b *Backend) EnableDAC(on bool) {
	if on == b.dacEnabled {
		return
	}
	b.dacEnabled = on
	var v uint16
	if on {
		v = 0x80
	}
	b.Commit(regDACCtl, v)
}

// DACEnabled reports whether the DAC owns channel 6.
func (b *Backend) DACEnabled() bool {
	return b.dacEnabled
}

// WriteDAC queues an 8-bit unsigned sample ahead of pending writes.
func (b *Backend) WriteDAC(sample uint8) {
	b.CommitUrgent(regDACData, sample)
}

// ForceInstrument forgets what the chip holds so the next tick rewrites
// every register.
func (b *Backend) ForceInstrument() {
	b.Pool().InvalidateAll()
	for ch := range b.Chan {
		b.Chan[ch].InsChanged = true
		b.Chan[ch].FreqChanged = true
	}
}

// Tick runs one engine tick and queues the resulting writes.
func (b *Backend) Tick() {
	for ch := range b.Chan {
		b.stepPorta(ch)
	}
	for ch := range b.Chan {
		c := &b.Chan[ch]
		if c.TakeHardReset() {
			b.hardReset(ch)
		}
		if c.KeyOff {
			b.Commit(regKeyOnOff, uint16(keyOnOffset(ch)))
			c.KeyOff = false
		}
		b.stageChannel(ch)
		c.InsChanged = false
	}
	b.emitChanged()
	for ch := range b.Chan {
		c := &b.Chan[ch]
		if c.FreqChanged {
			b.writeFreq(ch)
			c.FreqChanged = false
		}
	}
	for ch := range b.Chan {
		c := &b.Chan[ch]
		maskChanged := c.TakeOpMaskChanged()
		switch {
		case c.KeyOn:
			b.Commit(regKeyOnOff, uint16(c.OpMask<<4|keyOnOffset(ch)))
			c.KeyOn = false
			c.StartKey()
		case maskChanged && c.Active:
			b.Commit(regKeyOnOff, uint16(c.OpMask<<4|keyOnOffset(ch)))
		}
		c.AdvanceKey()
	}
}

// emitChanged queues every dirty pool entry in address order.
func (b *Backend) emitChanged() {
	pool := b.Pool()
	for addr, v := range pool.Changed() {
		b.Commit(uint32(addr), uint16(v))
		pool.Settle(addr)
	}
}

func (b *Backend) stageChannel(ch int) {
	c := &b.Chan[ch]
	p := &c.State
	for slot := 0; slot < fm.NumOperators; slot++ {
		op := &p.Ops[slot]
		b.Stage(opAddr(ch, slot, regDTMul), int16(fm.Detune(int(op.DT))<<4|op.Mult&15))
		b.Stage(opAddr(ch, slot, regTL), int16(b.operatorTL(c, slot)))
		b.Stage(opAddr(ch, slot, regRSAR), int16(op.RS&3<<6|op.AR&31))
		am := uint8(0)
		if op.AM {
			am = 0x80
		}
		b.Stage(opAddr(ch, slot, regAMDR), int16(am|op.DR&31))
		b.Stage(opAddr(ch, slot, regD2R), int16(op.D2R&31))
		b.Stage(opAddr(ch, slot, regSLRR), int16(op.SL&15<<4|op.RR&15))
		b.Stage(opAddr(ch, slot, regSSG), int16(op.SSG&15))
	}
	b.Stage(chanAddr(ch, regFBAlg), int16(p.FB&7<<3|p.Alg&7))
	b.Stage(chanAddr(ch, regPanAMS), int16(c.Pan<<6|p.AMS&3<<4|p.FMS&7))
}

// operatorTL returns the attenuation for the operator in slot, scaled by
// the channel volume when the operator is velocity sensitive. Disabled
// operators are silenced.
func (b *Backend) operatorTL(c *fm.Channel, slot int) uint8 {
	op := &c.State.Ops[slot]
	enabled, _ := c.OperatorEnabled(slot)
	if !op.Enable || !enabled {
		return 127
	}
	tl := int(op.TL & 127)
	if kvs, _ := c.KeyVelocitySensitive(slot); kvs {
		tl = 127 - (127-tl)*c.OutVol/fm.MaxVolume
	}
	return uint8(clamp(tl, 0, 127))
}

// hardReset keys the channel off and forces the fastest release, then
// marks the release registers unwritten so the staging pass restores them.
func (b *Backend) hardReset(ch int) {
	b.Commit(regKeyOnOff, uint16(keyOnOffset(ch)))
	for slot := 0; slot < fm.NumOperators; slot++ {
		addr := opAddr(ch, slot, regSLRR)
		b.Commit(uint32(addr), 0xFF)
		b.Pool().Invalidate(addr)
	}
}

// writeFreq commits the frequency pair. The high byte is latched by the
// chip and only takes effect on the low byte write, so order matters.
func (b *Backend) writeFreq(ch int) {
	c := &b.Chan[ch]
	freq := c.Freq
	if c.PortaPause {
		freq = c.PortaPauseFreq
	}
	hi, lo := freqRegs(freq)
	c.FreqH, c.FreqL = hi, lo
	b.Commit(uint32(chanAddr(ch, regFnumHi)), uint16(hi))
	b.Commit(uint32(chanAddr(ch, regFnumLo)), uint16(lo))
}

// stepPorta advances a glide by one tick. Crossing a block boundary holds
// the old block for one tick at the edge frequency before continuing.
func (b *Backend) stepPorta(ch int) {
	c := &b.Chan[ch]
	if c.PortaPause {
		c.PortaPause = false
		c.FreqChanged = true
		return
	}
	if !c.InPorta {
		return
	}
	target := LinearFreq(noteCents(b.portaNote[ch], c.Pitch), b.clock)
	speed := b.portaSpeed[ch]
	next := c.Freq
	switch {
	case next < target:
		next = min(next+speed, target)
	case next > target:
		next = max(next-speed, target)
	}
	_, oldBlock := SplitFreq(c.Freq)
	_, newBlock := SplitFreq(next)
	if newBlock != oldBlock {
		c.PortaPause = true
		c.PortaPauseFreq = edgeFreq(oldBlock, next > c.Freq)
	}
	c.Freq = next
	c.FreqChanged = true
	if next == target {
		c.InPorta = false
		c.Note = b.portaNote[ch]
		c.BaseFreq = LinearFreq(noteCents(c.Note, 0), b.clock)
	}
}

// edgeFreq returns the last frequency representable in block before a
// glide leaves it.
func edgeFreq(block uint8, up bool) int {
	if up {
		return maxFnum << block
	}
	return (maxFnum + 1) / 2 << block
}

// Flush writes every queued write to w in order.
func (b *Backend) Flush(w PortWriter) int {
	n := 0
	for qw := range b.Drain() {
		b.writePair(w, qw.Addr, uint8(qw.Val))
		n++
	}
	b.Delay = 0
	b.EndFlush()
	return n
}

// Acquire consumes up to clocks chip clocks of queue time. Each write is an
// address phase followed by a data phase; a write interrupted between the
// two resumes at the data phase on the next call. It returns the number of
// completed writes.
func (b *Backend) Acquire(w PortWriter, clocks int) int {
	n := 0
	q := b.Queue()
	for clocks > 0 {
		if b.Delay > 0 {
			step := min(b.Delay, clocks)
			b.Delay -= step
			clocks -= step
			continue
		}
		qw, ok := q.Front()
		if !ok {
			break
		}
		part := uint8(qw.Addr>>8) & 1
		if !qw.AddrOrVal {
			w.WritePort(part*2, uint8(qw.Addr))
			qw.AddrOrVal = true
			b.Delay = addrDelay
			continue
		}
		w.WritePort(part*2+1, uint8(qw.Val))
		b.Pool().SetMirror(uint16(qw.Addr), uint8(qw.Val))
		b.LastBusy = w.ReadPort(0)
		q.PopFront()
		b.Delay = dataDelay
		n++
	}
	if q.Len() == 0 {
		b.EndFlush()
	}
	return n
}

func (b *Backend) writePair(w PortWriter, addr uint32, val uint8) {
	part := uint8(addr>>8) & 1
	w.WritePort(part*2, uint8(addr))
	w.WritePort(part*2+1, val)
	b.Pool().SetMirror(uint16(addr), val)
}

// keyOnOffset returns the channel field of register $28.
func keyOnOffset(ch int) uint8 {
	if ch >= 3 {
		return uint8(ch + 1)
	}
	return uint8(ch)
}

func chanAddr(ch int, base uint16) uint16 {
	a := base + uint16(ch%3)
	if ch >= 3 {
		a |= 0x100
	}
	return a
}

func opAddr(ch, slot int, base uint16) uint16 {
	return chanAddr(ch, base+uint16(slot)*4)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
