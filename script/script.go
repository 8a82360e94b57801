// Package script compiles Lua command scripts into tick-ordered backend
// events.
//
// A script calls command functions in time order; wait(n) advances the
// write position by n ticks:
//
//	instrument(0, {alg = 4, fb = 5, ops = {{tl = 30, mul = 1}, {tl = 0}, {tl = 30}, {tl = 0}}})
//	note_on(0, 60, 0.8)
//	wait(30)
//	note_off(0)
//
// Operators in an instrument table are listed OP1 to OP4.
package script

import (
	"errors"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/user-none/emfm/fm"
)

// ErrNegativeWait reports a wait with a negative tick count.
var ErrNegativeWait = errors.New("script: negative wait")

// Kind identifies an event.
type Kind int

const (
	KindInstrument Kind = iota
	KindNoteOn
	KindNoteOff
	KindLegato
	KindPitch
	KindVolume
	KindVelocity
	KindPan
	KindOpMask
	KindPorta
	KindHardReset
	KindLFO
	KindDACEnable
	KindDAC
	KindPSG
)

var kindNames = [...]string{
	"instrument", "note_on", "note_off", "legato", "pitch", "volume",
	"velocity", "pan", "opmask", "porta", "hard_reset", "lfo", "dac_enable",
	"dac", "psg",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is one command at a tick.
type Event struct {
	Tick int
	Kind Kind
	Ch   int

	// Value holds the integer argument: note, volume, mask, pitch, speed,
	// instrument number, LFO rate or a data byte.
	Value int
	// Note is the portamento target.
	Note int
	Vel  float64
	On   bool // LFO and DAC enables, left output for pan
	Alt  bool // right output for pan

	Patch fm.Patch
}

// Script is a compiled command list.
type Script struct {
	Name   string
	Events []Event
	// Length is the number of ticks that covers every wait and event.
	Length int
}

// Load compiles the script at path.
func Load(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return Compile(path, string(src))
}

// Compile runs src in a fresh interpreter and collects its events.
func Compile(name, src string) (*Script, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("script: open %s: %w", lib.name, err)
		}
	}

	c := &compiler{s: &Script{Name: name}}
	c.register(L)
	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("script: %s: %w", name, err)
	}
	c.s.Length = c.tick
	if n := len(c.s.Events); n > 0 {
		c.s.Length = max(c.s.Length, c.s.Events[n-1].Tick+1)
	}
	return c.s, nil
}

type compiler struct {
	s    *Script
	tick int
}

func (c *compiler) add(e Event) {
	e.Tick = c.tick
	c.s.Events = append(c.s.Events, e)
}

func (c *compiler) register(L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"instrument": c.instrument,
		"note_on": func(L *lua.LState) int {
			c.add(Event{Kind: KindNoteOn, Ch: L.CheckInt(1), Value: L.CheckInt(2), Vel: float64(L.OptNumber(3, 1))})
			return 0
		},
		"note_off": func(L *lua.LState) int {
			c.add(Event{Kind: KindNoteOff, Ch: L.CheckInt(1)})
			return 0
		},
		"legato": func(L *lua.LState) int {
			c.add(Event{Kind: KindLegato, Ch: L.CheckInt(1), Value: L.CheckInt(2)})
			return 0
		},
		"pitch": func(L *lua.LState) int {
			c.add(Event{Kind: KindPitch, Ch: L.CheckInt(1), Value: L.CheckInt(2)})
			return 0
		},
		"volume": func(L *lua.LState) int {
			c.add(Event{Kind: KindVolume, Ch: L.CheckInt(1), Value: L.CheckInt(2)})
			return 0
		},
		"velocity": func(L *lua.LState) int {
			c.add(Event{Kind: KindVelocity, Ch: L.CheckInt(1), Vel: float64(L.CheckNumber(2))})
			return 0
		},
		"pan": func(L *lua.LState) int {
			c.add(Event{Kind: KindPan, Ch: L.CheckInt(1), On: L.CheckBool(2), Alt: L.CheckBool(3)})
			return 0
		},
		"opmask": func(L *lua.LState) int {
			c.add(Event{Kind: KindOpMask, Ch: L.CheckInt(1), Value: L.CheckInt(2)})
			return 0
		},
		"porta": func(L *lua.LState) int {
			c.add(Event{Kind: KindPorta, Ch: L.CheckInt(1), Note: L.CheckInt(2), Value: L.CheckInt(3)})
			return 0
		},
		"hard_reset": func(L *lua.LState) int {
			c.add(Event{Kind: KindHardReset, Ch: L.CheckInt(1)})
			return 0
		},
		"lfo": func(L *lua.LState) int {
			// lfo(rate) enables, lfo(false) disables
			if v := L.Get(1); v.Type() == lua.LTBool {
				c.add(Event{Kind: KindLFO, On: lua.LVAsBool(v)})
				return 0
			}
			c.add(Event{Kind: KindLFO, On: true, Value: L.CheckInt(1)})
			return 0
		},
		"dac_enable": func(L *lua.LState) int {
			c.add(Event{Kind: KindDACEnable, On: L.CheckBool(1)})
			return 0
		},
		"dac": func(L *lua.LState) int {
			c.add(Event{Kind: KindDAC, Value: L.CheckInt(1) & 0xFF})
			return 0
		},
		"psg": func(L *lua.LState) int {
			c.add(Event{Kind: KindPSG, Value: L.CheckInt(1) & 0xFF})
			return 0
		},
		"wait": func(L *lua.LState) int {
			n := L.CheckInt(1)
			if n < 0 {
				L.RaiseError("%v: %d", ErrNegativeWait, n)
			}
			c.tick += n
			return 0
		},
		"now": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.tick))
			return 1
		},
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// instrument(ch, tbl) loads a patch. Missing fields take the default
// patch values.
func (c *compiler) instrument(L *lua.LState) int {
	ch := L.CheckInt(1)
	tbl := L.CheckTable(2)

	p := fm.DefaultPatch()
	p.Alg = field(tbl, "alg", p.Alg)
	p.FB = field(tbl, "fb", p.FB)
	p.AMS = field(tbl, "ams", p.AMS)
	p.FMS = field(tbl, "fms", p.FMS)
	if p.Alg >= fm.NumAlgorithms {
		L.ArgError(2, fmt.Sprintf("algorithm %d: %v", p.Alg, fm.ErrAlgorithmRange))
	}

	if ops, ok := tbl.RawGetString("ops").(*lua.LTable); ok {
		for op := 0; op < fm.NumOperators; op++ {
			ot, ok := ops.RawGetInt(op + 1).(*lua.LTable)
			if !ok {
				continue
			}
			slot, _ := fm.PhysicalOperator(op)
			o := &p.Ops[slot]
			o.AR = field(ot, "ar", o.AR)
			o.DR = field(ot, "dr", o.DR)
			o.D2R = field(ot, "d2r", o.D2R)
			o.RR = field(ot, "rr", o.RR)
			o.SL = field(ot, "sl", o.SL)
			o.TL = field(ot, "tl", o.TL)
			o.RS = field(ot, "rs", o.RS)
			o.Mult = field(ot, "mul", o.Mult)
			o.DT = field(ot, "dt", o.DT)
			o.SSG = field(ot, "ssg", o.SSG)
			o.KVS = field(ot, "kvs", o.KVS)
			if v := ot.RawGetString("am"); v != lua.LNil {
				o.AM = lua.LVAsBool(v)
			}
			if v := ot.RawGetString("enable"); v != lua.LNil {
				o.Enable = lua.LVAsBool(v)
			}
		}
	}

	id := 0
	if v, ok := tbl.RawGetString("id").(lua.LNumber); ok {
		id = int(v)
	}
	c.add(Event{Kind: KindInstrument, Ch: ch, Value: id, Patch: p})
	return 0
}

func field(tbl *lua.LTable, name string, def uint8) uint8 {
	if v, ok := tbl.RawGetString(name).(lua.LNumber); ok {
		return uint8(v)
	}
	return def
}
