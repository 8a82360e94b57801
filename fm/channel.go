package fm

// Key-velocity sensitivity modes of a patch operator.
const (
	KVSOff         uint8 = 0
	KVSForced      uint8 = 1
	KVSConditional uint8 = 2
)

// DefaultPan enables both stereo outputs (left bit 1, right bit 0).
const DefaultPan uint8 = 3

// PatchOperator is one operator of an FM instrument. Fields hold raw
// register-width values.
type PatchOperator struct {
	Enable bool
	AM     bool
	AR     uint8 // attack rate, 5 bits
	DR     uint8 // decay rate, 5 bits
	D2R    uint8 // sustain rate, 5 bits
	RR     uint8 // release rate, 4 bits
	SL     uint8 // sustain level, 4 bits
	TL     uint8 // total level, 7 bits
	RS     uint8 // rate scaling, 2 bits
	Mult   uint8 // 4 bits
	DT     uint8 // detune index, 3 bits
	SSG    uint8 // SSG-EG mode, 4 bits
	KVS    uint8 // key-velocity sensitivity mode
}

// Patch is an FM instrument. It is consumed read-only by backends.
// Ops are stored in register slot order, matching the routing table.
type Patch struct {
	Alg uint8
	FB  uint8
	FMS uint8
	AMS uint8
	Ops [NumOperators]PatchOperator
}

// DefaultPatch returns a plain sine on the single output operator.
func DefaultPatch() Patch {
	p := Patch{Alg: 7}
	for i := range p.Ops {
		p.Ops[i] = PatchOperator{Enable: true, AR: 31, DR: 8, RR: 15, SL: 3, TL: 127, Mult: 1, DT: 3, KVS: KVSConditional}
	}
	p.Ops[0].TL = 0
	return p
}

// Channel is the per-voice state shared by FM backends.
type Channel struct {
	State Patch

	Freq       int
	BaseFreq   int
	Pitch      int
	Note       int
	Ins        int
	Vol        int
	OutVol     int
	Active     bool
	InsChanged bool

	FreqChanged bool
	KeyOn       bool
	KeyOff      bool
	PortaPause  bool
	InPorta     bool

	FreqH, FreqL   uint8
	PortaPauseFreq int

	// OpMask enables operators OP1..OP4 in bits 0..3.
	OpMask uint8

	// KeyOnCycles counts ticks since key-on, saturating at HardResetCycles.
	KeyOnCycles int8

	HardReset     bool
	OpMaskChanged bool

	// Stereo channels carry Pan; mono channels ignore it.
	Stereo bool
	Pan    uint8
}

// NewChannel returns a channel in its reset state.
func NewChannel(stereo bool) Channel {
	c := Channel{Stereo: stereo}
	c.Reset()
	return c
}

// Reset restores the channel to its power-on state without reallocating.
func (c *Channel) Reset() {
	stereo := c.Stereo
	*c = Channel{
		State:  DefaultPatch(),
		Ins:    -1,
		Vol:    127,
		OutVol: 127,
		OpMask: 15,
		Stereo: stereo,
	}
	if stereo {
		c.Pan = DefaultPan
	}
}

// KeyVelocitySensitive reports whether operator op responds to velocity
// under the channel's current algorithm.
func (c *Channel) KeyVelocitySensitive(op int) (bool, error) {
	if op < 0 || op >= NumOperators {
		return false, ErrOperatorRange
	}
	kvs := c.State.Ops[op].KVS
	if kvs == KVSForced {
		return true, nil
	}
	if kvs != KVSConditional {
		return false, nil
	}
	return IsOutput(int(c.State.Alg&7), op)
}

// OperatorEnabled reports whether the register slot is enabled by OpMask.
func (c *Channel) OperatorEnabled(slot int) (bool, error) {
	op, err := LogicalOperator(slot)
	if err != nil {
		return false, err
	}
	return c.OpMask&(1<<uint(op)) != 0, nil
}

// SetOpMask changes the operator mask and flags the change when it differs.
func (c *Channel) SetOpMask(mask uint8) {
	mask &= 15
	if mask == c.OpMask {
		return
	}
	c.OpMask = mask
	c.OpMaskChanged = true
}

// StartKey restarts the key-on counter.
func (c *Channel) StartKey() {
	c.KeyOnCycles = 0
}

// AdvanceKey counts one tick since key-on.
func (c *Channel) AdvanceKey() {
	if c.KeyOnCycles < HardResetCycles {
		c.KeyOnCycles++
	}
}

// HardResetAllowed reports whether the key-on window is still open.
func (c *Channel) HardResetAllowed() bool {
	return c.KeyOnCycles < HardResetCycles
}

// RequestHardReset flags a hard reset if the window allows it.
func (c *Channel) RequestHardReset() bool {
	if !c.HardResetAllowed() {
		return false
	}
	c.HardReset = true
	return true
}

// TakeHardReset returns and clears the hard reset flag.
func (c *Channel) TakeHardReset() bool {
	r := c.HardReset
	c.HardReset = false
	return r
}

// TakeOpMaskChanged returns and clears the mask-changed flag.
func (c *Channel) TakeOpMaskChanged() bool {
	r := c.OpMaskChanged
	c.OpMaskChanged = false
	return r
}

// SetPan stores the stereo enables. It is ignored on mono channels.
func (c *Channel) SetPan(left, right bool) bool {
	if !c.Stereo {
		return false
	}
	var pan uint8
	if left {
		pan |= 2
	}
	if right {
		pan |= 1
	}
	changed := pan != c.Pan
	c.Pan = pan
	return changed
}
