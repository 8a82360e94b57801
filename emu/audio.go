package emu

import (
	"math"

	"github.com/user-none/go-chip-sn76489"
)

const (
	// SampleRate is the output rate of every audio path.
	SampleRate    = 48000
	psgBufferSize = 1024
	psgGain       = 1898.0
	lpfCutoffHz   = 2840.0
)

// lpfAlpha is the smoothing factor for the first-order RC low-pass filter.
// Derived from: alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
var lpfAlpha = 1.0 / (float64(SampleRate)/(2*math.Pi*lpfCutoffHz) + 1)

// SoundBoard is the sound hardware of the console: the YM2612, the SN76489
// PSG and the output filter. It accepts port writes for the YM2612 and
// byte writes for the PSG, and renders mixed 16-bit stereo.
type SoundBoard struct {
	ym  *YM2612
	psg *sn76489.SN76489

	timing  RegionTiming
	psgFrac int // Z80 clock remainder carried between renders

	lowPass     bool
	filterPrevL float64
	filterPrevR float64

	audioBuffer []int16
}

// NewSoundBoard creates a sound board clocked for the given region.
func NewSoundBoard(region Region) *SoundBoard {
	timing := GetTimingForRegion(region)
	psg := sn76489.New(timing.Z80ClockHz, SampleRate, psgBufferSize, sn76489.Sega)
	psg.SetGain(psgGain)
	return &SoundBoard{
		ym:          NewYM2612(timing.YMClockHz, SampleRate),
		psg:         psg,
		timing:      timing,
		lowPass:     true,
		audioBuffer: make([]int16, 0, 2048),
	}
}

// YM2612 returns the FM chip.
func (s *SoundBoard) YM2612() *YM2612 {
	return s.ym
}

// Timing returns the clock rates of the board.
func (s *SoundBoard) Timing() RegionTiming {
	return s.timing
}

// SetLowPass enables or disables the Model 1 output filter.
func (s *SoundBoard) SetLowPass(on bool) {
	s.lowPass = on
}

// WritePort forwards a port write to the YM2612.
func (s *SoundBoard) WritePort(port uint8, val uint8) {
	s.ym.WritePort(port, val)
}

// ReadPort reads a YM2612 port.
func (s *SoundBoard) ReadPort(port uint8) uint8 {
	return s.ym.ReadPort(port)
}

// WritePSG writes one byte to the PSG.
func (s *SoundBoard) WritePSG(val uint8) {
	s.psg.Write(val)
}

// Reset silences both chips and clears the filter state.
func (s *SoundBoard) Reset() {
	s.ym.Reset()
	s.psg.Reset()
	s.psg.ResetBuffer()
	s.psgFrac = 0
	s.filterPrevL = 0
	s.filterPrevR = 0
	s.audioBuffer = s.audioBuffer[:0]
}

// Render produces frames stereo pairs of mixed audio. The returned slice is
// reused by the next call.
func (s *SoundBoard) Render(frames int) []int16 {
	s.audioBuffer = s.audioBuffer[:0]
	for frames > 0 {
		// The PSG buffer holds psgBufferSize samples per run
		n := min(frames, psgBufferSize)
		frames -= n

		s.psg.ResetBuffer()
		cycles := n*s.timing.Z80ClockHz + s.psgFrac
		s.psg.Run(cycles / SampleRate)
		s.psgFrac = cycles % SampleRate

		s.mixAudio(s.ym.Render(n))
	}
	if s.lowPass {
		s.applyLowPass()
	}
	return s.audioBuffer
}

// mixAudio mixes YM2612 stereo pairs with PSG mono samples into the
// board's audio buffer. PSG samples are duplicated to both channels.
func (s *SoundBoard) mixAudio(ym2612Samples []int16) {
	psgBuf, psgCount := s.psg.GetBuffer()

	ymPairs := len(ym2612Samples) / 2
	mixCount := ymPairs
	if psgCount < mixCount {
		mixCount = psgCount
	}

	for i := 0; i < mixCount; i++ {
		fmL := int32(ym2612Samples[i*2])
		fmR := int32(ym2612Samples[i*2+1])
		psgVal := int32(psgBuf[i])
		mixL := clampInt32(fmL+psgVal, -32768, 32767)
		mixR := clampInt32(fmR+psgVal, -32768, 32767)
		s.audioBuffer = append(s.audioBuffer, int16(mixL), int16(mixR))
	}

	// Keep the YM2612 frame count; a short PSG render leaves FM only
	if ymPairs > mixCount {
		s.audioBuffer = append(s.audioBuffer, ym2612Samples[mixCount*2:]...)
	}
}

// applyLowPass applies a first-order RC low-pass filter to the audio
// buffer. This emulates the Model 1 VA3 motherboard filter (fc ~= 2840 Hz,
// 20 dB/decade rolloff). Applied per stereo channel with state persisting
// across renders.
func (s *SoundBoard) applyLowPass() {
	for i := 0; i < len(s.audioBuffer); i += 2 {
		inL := float64(s.audioBuffer[i])
		inR := float64(s.audioBuffer[i+1])
		s.filterPrevL = lpfAlpha*inL + (1-lpfAlpha)*s.filterPrevL
		s.filterPrevR = lpfAlpha*inR + (1-lpfAlpha)*s.filterPrevR
		s.audioBuffer[i] = int16(math.Round(s.filterPrevL))
		s.audioBuffer[i+1] = int16(math.Round(s.filterPrevR))
	}
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
