package script

import (
	"fmt"

	"github.com/user-none/emfm/fm"
)

// Target receives FM events. *opn2.Backend satisfies it.
type Target interface {
	SetInstrument(ch, ins int, p fm.Patch) error
	NoteOn(ch, note int, vel float64) error
	NoteOff(ch int) error
	SetNote(ch, note int) error
	SetPitch(ch, pitch int) error
	SetVolume(ch, vol int) error
	SetVelocity(ch int, vel float64) error
	SetPan(ch int, left, right bool) error
	SetOpMask(ch int, mask uint8) error
	SetPortamento(ch, target, speed int) error
	HardReset(ch int) (bool, error)
	SetLFO(on bool, rate uint8)
	EnableDAC(on bool)
	WriteDAC(sample uint8)
}

// PSGWriter receives PSG bytes.
type PSGWriter interface {
	WritePSG(val uint8)
}

// Player walks a script one tick at a time.
type Player struct {
	s   *Script
	pos int
}

// NewPlayer returns a player positioned at tick 0.
func NewPlayer(s *Script) *Player {
	return &Player{s: s}
}

// Step applies every event scheduled at or before tick, in script order.
// psg may be nil, in which case PSG events are dropped. A failing event
// stops the step; the player resumes after it on the next call.
func (p *Player) Step(tick int, t Target, psg PSGWriter) error {
	for p.pos < len(p.s.Events) && p.s.Events[p.pos].Tick <= tick {
		e := p.s.Events[p.pos]
		p.pos++
		if err := apply(e, t, psg); err != nil {
			return fmt.Errorf("script: tick %d %s: %w", e.Tick, e.Kind, err)
		}
	}
	return nil
}

// Done reports whether every event has been applied.
func (p *Player) Done() bool {
	return p.pos >= len(p.s.Events)
}

// Rewind moves the player back to tick 0.
func (p *Player) Rewind() {
	p.pos = 0
}

func apply(e Event, t Target, psg PSGWriter) error {
	switch e.Kind {
	case KindInstrument:
		return t.SetInstrument(e.Ch, e.Value, e.Patch)
	case KindNoteOn:
		return t.NoteOn(e.Ch, e.Value, e.Vel)
	case KindNoteOff:
		return t.NoteOff(e.Ch)
	case KindLegato:
		return t.SetNote(e.Ch, e.Value)
	case KindPitch:
		return t.SetPitch(e.Ch, e.Value)
	case KindVolume:
		return t.SetVolume(e.Ch, e.Value)
	case KindVelocity:
		return t.SetVelocity(e.Ch, e.Vel)
	case KindPan:
		return t.SetPan(e.Ch, e.On, e.Alt)
	case KindOpMask:
		return t.SetOpMask(e.Ch, uint8(e.Value))
	case KindPorta:
		return t.SetPortamento(e.Ch, e.Note, e.Value)
	case KindHardReset:
		_, err := t.HardReset(e.Ch)
		return err
	case KindLFO:
		t.SetLFO(e.On, uint8(e.Value))
	case KindDACEnable:
		t.EnableDAC(e.On)
	case KindDAC:
		t.WriteDAC(uint8(e.Value))
	case KindPSG:
		if psg != nil {
			psg.WritePSG(uint8(e.Value))
		}
	default:
		return fmt.Errorf("unknown event kind %d", int(e.Kind))
	}
	return nil
}
