package opn2

import "math"

// Frequency values are kept linear as fnum<<block so portamento can step
// through them evenly. The split into register fields happens on write.

const (
	maxFnum  = 0x7FF
	maxBlock = 7
	maxNote  = 127
)

// LinearFreq returns fnum<<block for a pitch given in cents above MIDI
// note 0, for a chip running at clock Hz.
func LinearFreq(cents int, clock int) int {
	hz := 440 * math.Pow(2, (float64(cents)/100-69)/12)
	native := float64(clock) / 144
	lin := math.Round(hz * (1 << 21) / native)
	if lin > float64(maxFnum<<maxBlock) {
		return maxFnum << maxBlock
	}
	return int(lin)
}

// SplitFreq converts a linear frequency into the 11-bit F-number and 3-bit
// block, keeping as many F-number bits as the block range allows.
func SplitFreq(lin int) (fnum uint16, block uint8) {
	if lin < 0 {
		lin = 0
	}
	for lin > maxFnum && block < maxBlock {
		lin >>= 1
		block++
	}
	if lin > maxFnum {
		lin = maxFnum
	}
	return uint16(lin), block
}

// freqRegs returns the $A4 and $A0 bytes for a linear frequency.
func freqRegs(lin int) (hi, lo uint8) {
	fnum, block := SplitFreq(lin)
	return block<<3 | uint8(fnum>>8), uint8(fnum)
}

func noteCents(note, pitch int) int {
	return note*100 + pitch
}
