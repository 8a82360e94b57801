package fm

import "math"

// MaxVolume is the top of the normalized volume scale.
const MaxVolume = 127

// VolumeCurve converts musical expression into chip volume. Chip families
// with different volume laws supply their own.
type VolumeCurve interface {
	// MapVelocity maps a velocity in [0,1] to a volume in [0,127].
	MapVelocity(ch int, vel float64) int
	// Gain maps a volume in [0,127] to a linear gain in [0,1].
	Gain(ch int, vol int) float64
}

// LogCurve is a logarithmic volume law with a fixed attenuation per step.
type LogCurve struct {
	// StepDB is the attenuation of one volume step. Zero means 0.75 dB.
	StepDB float64
}

// DefaultCurve is the -0.75 dB per step law used by OPN-family chips.
var DefaultCurve VolumeCurve = LogCurve{StepDB: 0.75}

func (c LogCurve) step() float64 {
	if c.StepDB <= 0 {
		return 0.75
	}
	return c.StepDB
}

// MapVelocity implements VolumeCurve.
//
//	-6dB: 64: 8, -12dB: 32: 16 ... -42dB: 1: 56 (at 0.75 dB per step)
func (c LogCurve) MapVelocity(ch int, vel float64) int {
	if math.IsNaN(vel) || vel <= 0 {
		return 0
	}
	if vel >= 1.0 {
		return MaxVolume
	}
	perOctave := 6.0 / c.step()
	v := math.Round(128.0 - (7*perOctave - math.Log2(vel*127.0)*perOctave))
	return clampInt(int(v), 0, MaxVolume)
}

// Gain implements VolumeCurve.
func (c LogCurve) Gain(ch int, vol int) float64 {
	if vol <= 0 {
		return 0
	}
	if vol > MaxVolume {
		vol = MaxVolume
	}
	return 1.0 / math.Pow(10.0, float64(MaxVolume-vol)*c.step()/20.0)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
