package fm

import "iter"

// RegisterSpace is the generic register address bound. A chip uses a subset.
const RegisterSpace = 512

// NoValue marks a pool entry that has not been staged or written since reset.
const NoValue int16 = -1

// RegisterPool holds the diff state of one chip.
//
// old[addr] is the last value physically written, pending[addr] the value
// requested by the current command. The mirror keeps the last byte the chip
// accepted, for readback.
type RegisterPool struct {
	old     [RegisterSpace]int16
	pending [RegisterSpace]int16
	mirror  [RegisterSpace]uint8
}

// Reset clears the mirror and marks every old and pending entry as unset.
func (p *RegisterPool) Reset() {
	for i := range p.old {
		p.old[i] = NoValue
		p.pending[i] = NoValue
	}
	p.mirror = [RegisterSpace]uint8{}
}

// Stage records v as the desired value for addr.
func (p *RegisterPool) Stage(addr uint16, v int16) error {
	if int(addr) >= RegisterSpace {
		return ErrRegisterRange
	}
	p.pending[addr] = v
	return nil
}

// Pending returns the staged value for addr, or NoValue.
func (p *RegisterPool) Pending(addr uint16) int16 {
	if int(addr) >= RegisterSpace {
		return NoValue
	}
	return p.pending[addr]
}

// Old returns the last written value for addr, or NoValue.
func (p *RegisterPool) Old(addr uint16) int16 {
	if int(addr) >= RegisterSpace {
		return NoValue
	}
	return p.old[addr]
}

// Dirty reports whether a staged value differs from what was last written.
func (p *RegisterPool) Dirty(addr uint16) bool {
	if int(addr) >= RegisterSpace {
		return false
	}
	return p.pending[addr] != NoValue && p.pending[addr] != p.old[addr]
}

// DirtyMasked is Dirty restricted to the bits in mask. An entry that was
// never written is always dirty.
func (p *RegisterPool) DirtyMasked(addr uint16, mask uint8) bool {
	if int(addr) >= RegisterSpace || p.pending[addr] == NoValue {
		return false
	}
	if p.old[addr] == NoValue {
		return true
	}
	return (uint8(p.pending[addr])^uint8(p.old[addr]))&mask != 0
}

// Settle marks the pending value of addr as written.
func (p *RegisterPool) Settle(addr uint16) {
	if int(addr) < RegisterSpace {
		p.old[addr] = p.pending[addr]
	}
}

// Invalidate forgets the written value of addr so the next diff re-emits it.
func (p *RegisterPool) Invalidate(addr uint16) {
	if int(addr) < RegisterSpace {
		p.old[addr] = NoValue
	}
}

// InvalidateAll forgets every written value.
func (p *RegisterPool) InvalidateAll() {
	for i := range p.old {
		p.old[i] = NoValue
	}
}

// Changed yields every dirty address in ascending order with its pending byte.
func (p *RegisterPool) Changed() iter.Seq2[uint16, uint8] {
	return func(yield func(uint16, uint8) bool) {
		for i := range p.pending {
			addr := uint16(i)
			if !p.Dirty(addr) {
				continue
			}
			if !yield(addr, uint8(p.pending[i])) {
				return
			}
		}
	}
}

// Mirror returns the last byte the chip accepted at addr.
func (p *RegisterPool) Mirror(addr uint16) uint8 {
	if int(addr) >= RegisterSpace {
		return 0
	}
	return p.mirror[addr]
}

// SetMirror records a byte the chip accepted.
func (p *RegisterPool) SetMirror(addr uint16, v uint8) {
	if int(addr) < RegisterSpace {
		p.mirror[addr] = v
	}
}
