// Package adapter exposes script playback as an eblitui core, so the
// standalone, libretro and iOS front ends can load a Lua song like a ROM.
package adapter

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/emfm/emu"
	"github.com/user-none/emfm/script"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for song scripts.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emfm",
		ConsoleName:     "Sega Genesis Sound",
		Extensions:      []string{".lua"},
		ScreenWidth:     ScreenWidth,
		MaxScreenHeight: ScreenHeight,
		AspectRatio:     320.0 / 224.0,
		SampleRate:      emu.SampleRate,
		Buttons: []emucore.Button{
			{Name: "Low-pass", ID: buttonLowPass, DefaultKey: "J", DefaultPad: "X"},
			{Name: "Restart", ID: buttonRestart, DefaultKey: "Enter", DefaultPad: "Start"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         optionZ80,
				Label:       "Z80 Driver",
				Description: "Deliver register writes through the sound Z80",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
			},
			{
				Key:         optionLegacyVolume,
				Label:       "Legacy Volume",
				Description: "Re-send operator levels on every note",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
			},
		},
		DataDirName: "emfm",
		CoreName:    Name,
		CoreVersion: Version,
	}
}

// CreateEmulator compiles rom as a song script.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	s, err := script.Compile("rom", string(rom))
	if err != nil {
		return nil, fmt.Errorf("adapter: %w", err)
	}
	return NewCore(s, region), nil
}

// DetectRegion reads a "-- region: pal" comment from the top of the
// script. The bool return is false since no database lookup is involved.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	sc := bufio.NewScanner(bytes.NewReader(rom))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "--") {
			break
		}
		if name, ok := strings.CutPrefix(strings.TrimSpace(strings.TrimPrefix(line, "--")), "region:"); ok {
			return toCoreRegion(emu.ParseRegion(strings.TrimSpace(name))), false
		}
	}
	return emucore.RegionNTSC, false
}

func toCoreRegion(r emu.Region) emucore.Region {
	if r == emu.RegionPAL {
		return emucore.RegionPAL
	}
	return emucore.RegionNTSC
}

func fromCoreRegion(r emucore.Region) emu.Region {
	if r == emucore.RegionPAL {
		return emu.RegionPAL
	}
	return emu.RegionNTSC
}
