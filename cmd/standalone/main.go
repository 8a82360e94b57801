//go:build !libretro && !ios

package main

import (
	"flag"
	"log"

	"github.com/user-none/eblitui/standalone"

	"github.com/user-none/emfm/adapter"
)

func main() {
	scriptPath := flag.String("script", "", "path to Lua song script (opens UI if not provided)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	useZ80 := flag.Bool("z80", false, "deliver writes through the sound Z80")
	legacyVolume := flag.Bool("legacy-volume", true, "re-send volume on every note")
	flag.Parse()

	factory := &adapter.Factory{}

	if *scriptPath != "" {
		options := map[string]string{
			"z80_driver":    boolOption(*useZ80),
			"legacy_volume": boolOption(*legacyVolume),
		}
		if err := standalone.RunDirect(factory, *scriptPath, *regionFlag, options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}

func boolOption(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
