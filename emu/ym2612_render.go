package emu

import "math"

const (
	// maxAttenDB is the envelope floor; anything quieter is silent.
	maxAttenDB = 96.0

	// tlStepDB is the attenuation of one TL step.
	tlStepDB = 0.75

	// slStepDB is the attenuation of one sustain level step.
	slStepDB = 3.0

	// modDepth converts a full-scale modulator output to phase cycles.
	modDepth = 4.0

	// channelScale is the int16 amplitude of one full-scale channel. Six
	// channels summed stay clear of clipping with room for the PSG.
	channelScale = 4096.0
)

// Render produces frames stereo sample pairs of preview audio. The preview
// follows the register state and algorithm topology but ignores the LFO,
// SSG-EG, detune and channel 3 special mode.
func (y *YM2612) Render(frames int) []int16 {
	out := make([]int16, 0, frames*2)
	for i := 0; i < frames; i++ {
		// Bresenham step of the native clock against the output rate
		y.resampAccum += y.nativeClock
		for y.resampAccum >= y.sampleRate {
			y.resampAccum -= y.sampleRate
			y.nativeSampleCount++
		}

		var left, right float64
		for chIdx := range y.ch {
			ch := &y.ch[chIdx]
			var s float64
			if chIdx == 5 && y.dacEnable {
				s = (float64(y.dacSample) - 128) / 128
			} else {
				s = y.renderChannel(ch)
			}
			if ch.panL {
				left += s
			}
			if ch.panR {
				right += s
			}
		}
		out = append(out, toInt16(left*channelScale), toInt16(right*channelScale))
	}
	return out
}

// renderChannel advances one channel by one output sample and returns its
// output in [-1,1].
func (y *YM2612) renderChannel(ch *ymChannel) float64 {
	kc := computeKeyCode(ch.fNum, ch.block)
	hz := float64(uint32(ch.fNum)<<ch.block) * float64(y.nativeClock) / (1 << 21)
	for i := range ch.op {
		op := &ch.op[i]
		op.phase += hz * multiple(op.mul) / float64(y.sampleRate)
		op.phase -= math.Floor(op.phase)
		y.stepEnvelope(op, kc)
	}

	o := &ch.op
	var fb float64
	if ch.feedback != 0 {
		fb = (o[0].prevOut[0] + o[0].prevOut[1]) * math.Ldexp(1, int(ch.feedback)-7)
	}
	s1 := o[0].output(fb)
	o[0].prevOut[0], o[0].prevOut[1] = o[0].prevOut[1], s1

	var out float64
	switch ch.algorithm {
	case 0:
		out = o[3].output(o[2].output(o[1].output(s1)))
	case 1:
		out = o[3].output(o[2].output(s1 + o[1].output(0)))
	case 2:
		out = o[3].output(s1 + o[2].output(o[1].output(0)))
	case 3:
		out = o[3].output(o[1].output(s1) + o[2].output(0))
	case 4:
		out = o[1].output(s1) + o[3].output(o[2].output(0))
	case 5:
		out = o[1].output(s1) + o[2].output(s1) + o[3].output(s1)
	case 6:
		out = o[1].output(s1) + o[2].output(0) + o[3].output(0)
	default:
		out = s1 + o[1].output(0) + o[2].output(0) + o[3].output(0)
	}
	return math.Max(-1, math.Min(1, out))
}

// output returns the operator's sample for a phase modulation given as a
// full-scale modulator value.
func (op *ymOperator) output(mod float64) float64 {
	atten := op.egAtten + float64(op.tl)*tlStepDB
	if atten >= maxAttenDB {
		return 0
	}
	amp := math.Pow(10, -atten/20)
	return amp * math.Sin(2*math.Pi*(op.phase+mod*modDepth))
}

func multiple(mul uint8) float64 {
	if mul == 0 {
		return 0.5
	}
	return float64(mul)
}

// stepEnvelope advances the operator envelope by one output sample.
func (y *YM2612) stepEnvelope(op *ymOperator, kc uint8) {
	switch op.egState {
	case egAttack:
		rate := effectiveRate(op.ar, op.rs, kc)
		if rate >= 62 {
			op.egAtten = 0
		} else {
			op.egAtten -= y.rateDB(rate) * 8
		}
		if op.egAtten <= 0 {
			op.egAtten = 0
			op.egState = egDecay
		}
	case egDecay:
		op.egAtten += y.rateDB(effectiveRate(op.d1r, op.rs, kc))
		if sl := float64(op.d1l) * slStepDB; op.egAtten >= sl {
			op.egAtten = sl
			op.egState = egSustain
		}
	case egSustain:
		op.egAtten += y.rateDB(effectiveRate(op.d2r, op.rs, kc))
	case egRelease:
		op.egAtten += y.rateDB(effectiveRate(op.rr*2+1, op.rs, kc))
	}
	if op.egAtten > maxAttenDB {
		op.egAtten = maxAttenDB
	}
}

// rateDB returns the attenuation change per output sample for an
// effective rate. Rate 0 is frozen; every 4 rate steps halve the time.
func (y *YM2612) rateDB(rate uint8) float64 {
	if rate == 0 {
		return 0
	}
	seconds := 120 * math.Exp2(-float64(rate)/4)
	return maxAttenDB / (seconds * float64(y.sampleRate))
}

// effectiveRate computes 2*rate + rks, clamped to 63. Returns 0 if rate is 0.
func effectiveRate(rate, rs, kc uint8) uint8 {
	if rate == 0 {
		return 0
	}
	r := int(2*rate) + int(kc>>(3-rs))
	if r > 63 {
		r = 63
	}
	return uint8(r)
}

// computeKeyCode computes the 5-bit key code from F-number and block.
// keyCode = [block(3), F11, (F11&(F10|F9|F8)) | (!F11&F10&F9&F8)]
func computeKeyCode(fNum uint16, block uint8) uint8 {
	f11 := (fNum >> 10) & 1
	f10 := (fNum >> 9) & 1
	f9 := (fNum >> 8) & 1
	f8 := (fNum >> 7) & 1

	bit1 := f11
	bit0 := (f11 & (f10 | f9 | f8)) | ((1 ^ f11) & f10 & f9 & f8)

	return (block << 2) | uint8(bit1<<1) | uint8(bit0)
}

func toInt16(v float64) int16 {
	return int16(clampInt32(int32(math.Round(v)), -32768, 32767))
}
