package emu

// Region selects the console clock set.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// String returns the region name.
func (r Region) String() string {
	if r == RegionPAL {
		return "PAL"
	}
	return "NTSC"
}

// ParseRegion maps a region name to a Region. Unknown names select NTSC.
func ParseRegion(name string) Region {
	switch name {
	case "pal", "PAL":
		return RegionPAL
	}
	return RegionNTSC
}

// RegionTiming holds timing constants for a specific region.
// The sound board has two clock domains: the YM2612 runs from the 68K
// clock, the PSG and the sound Z80 from the Z80 clock.
type RegionTiming struct {
	YMClockHz  int // YM2612 master clock (68K clock)
	Z80ClockHz int // Z80 and SN76489 clock
	TickHz     int // Engine ticks per second (frame rate)
}

// NTSC timing: YM2612 7.670453 MHz, Z80 3.579545 MHz, 60 Hz
var NTSCTiming = RegionTiming{
	YMClockHz:  7670453,
	Z80ClockHz: 3579545,
	TickHz:     60,
}

// PAL timing: YM2612 7.600489 MHz, Z80 3.546893 MHz, 50 Hz
var PALTiming = RegionTiming{
	YMClockHz:  7600489,
	Z80ClockHz: 3546893,
	TickHz:     50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// FramesPerTick returns the number of output frames in one engine tick.
func (t RegionTiming) FramesPerTick() int {
	return SampleRate / t.TickHz
}
