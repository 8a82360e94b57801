package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/user-none/emfm/cli"
	"github.com/user-none/emfm/emu"
	"github.com/user-none/emfm/script"
	"github.com/user-none/emfm/ui"
	"github.com/user-none/emfm/vgm"
)

func main() {
	scriptPath := flag.String("script", "", "path to Lua song script (required)")
	wavPath := flag.String("wav", "", "render to a 16-bit WAV file")
	vgmPath := flag.String("vgm", "", "capture chip writes to a VGM file (.vgz compresses)")
	play := flag.Bool("play", false, "play through the sound device")
	useZ80 := flag.Bool("z80", false, "deliver writes through the sound Z80")
	seconds := flag.Float64("seconds", 0, "stop after this many seconds (0 plays the whole script)")
	dryRun := flag.Bool("dry-run", false, "run the script without touching the chip")
	legacyVolume := flag.Bool("legacy-volume", true, "re-send volume on every note")
	volume := flag.Float64("volume", 1.0, "playback volume (0.0-1.0)")
	regionFlag := flag.String("region", "ntsc", "region: ntsc or pal")
	flag.Parse()

	if *scriptPath == "" {
		log.Fatal("Script path is required. Usage: emfm -script <path> [-play] [-wav out.wav] [-vgm out.vgm]")
	}

	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "ntsc", "pal":
		region = emu.ParseRegion(strings.ToLower(*regionFlag))
	default:
		log.Fatalf("Invalid region: %s (use ntsc or pal)", *regionFlag)
	}
	timing := emu.GetTimingForRegion(region)

	s, err := script.Load(*scriptPath)
	if err != nil {
		log.Fatalf("Failed to load script: %v", err)
	}

	opts := []cli.Option{
		cli.WithRegion(region),
		cli.WithZ80(*useZ80),
		cli.WithLegacyVolume(*legacyVolume),
		cli.WithDryRun(*dryRun),
	}
	if *seconds > 0 {
		opts = append(opts, cli.WithMaxTicks(int(*seconds*float64(timing.TickHz))))
	}
	var capture *vgm.Writer
	if *vgmPath != "" {
		capture = vgm.NewWriter(timing.YMClockHz, timing.Z80ClockHz, timing.TickHz)
		opts = append(opts, cli.WithCapture(capture))
	}
	runner := cli.NewRunner(s, opts...)

	switch {
	case *dryRun:
		if _, err := runner.RenderOffline(); err != nil {
			log.Fatalf("Script failed: %v", err)
		}
		log.Printf("%s: %d events over %d ticks", s.Name, len(s.Events), runner.Tick())

	case *play:
		player, err := ui.NewAudioPlayer(*volume)
		if err != nil {
			log.Fatalf("Failed to open audio: %v", err)
		}
		defer player.Close()

		ctl := ui.NewPlaybackControl()
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		go func() {
			<-sig
			ctl.Stop()
		}()

		if err := runner.Play(player, ctl); err != nil {
			log.Fatalf("Playback failed: %v", err)
		}
		if ctl.Running() {
			player.Drain(2 * time.Second)
		}

	default:
		samples, err := runner.RenderOffline()
		if err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		if *wavPath != "" {
			if err := writeWAV(*wavPath, samples); err != nil {
				log.Fatalf("Failed to write WAV: %v", err)
			}
		} else if *vgmPath == "" {
			log.Printf("Warning: nothing to do; pass -play, -wav or -vgm")
		}
	}

	if d := runner.Driver(); d != nil {
		log.Printf("Z80 driver: %d T-states", d.Cycles())
	}

	if capture != nil && !*dryRun {
		compress := strings.EqualFold(filepath.Ext(*vgmPath), ".vgz")
		if err := capture.Save(*vgmPath, compress); err != nil {
			log.Fatalf("Failed to write VGM: %v", err)
		}
	}
}

func writeWAV(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cli.EncodeWAV(f, samples, emu.SampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
