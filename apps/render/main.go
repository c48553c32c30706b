package main

import "os"
import "fmt"
import "flag"
import "time"

import "github.com/sirupsen/logrus"

import "github.com/tinne26/vinyl"
import "github.com/tinne26/vinyl/internal/config"

// This program renders an audio file through a deck into a 16 bit stereo
// WAV file, without any audio device involved. Useful to check how speed,
// tempo sync and effects sound offline.
const BlockSize = 4096

func main() {
	out := flag.String("out", "render.wav", "output WAV file")
	speed := flag.Float64("speed", 1.0, "playback speed (negative to play backwards)")
	tempo := flag.Float64("tempo", 0, "host tempo in bpm (defaults to VINYL_TEMPO)")
	length := flag.Duration("length", 10*time.Second, "length of the render")
	start := flag.Float64("start", 0, "start position in seconds")
	sync := flag.Bool("sync", false, "keep the waveform beats locked to the host tempo")
	loop := flag.Bool("loop", true, "loop the waveform")
	effectFlags := map[vinyl.EffectKind]*bool{
		vinyl.EffectBrake: flag.Bool("brake", false, "engage the brake effect"),
		vinyl.EffectHold: flag.Bool("hold", false, "engage the hold effect"),
		vinyl.EffectPreRoll: flag.Bool("preroll", false, "engage the pre-roll effect"),
		vinyl.EffectDistortion: flag.Bool("distortion", false, "engage the distortion effect"),
	}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] path/to/audio_file.{ogg|wav|mp3}\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil { logrus.Fatal(err) }
	if *tempo == 0 { *tempo = cfg.Tempo }

	buffer, err := vinyl.LoadWaveform(flag.Arg(0), cfg.SampleRate, cfg.BeatsPerLoop)
	if err != nil { logrus.Fatal(err) }
	if buffer.BeatsPerLoop() == 0 {
		buffer.SetBeatsPerLoop(vinyl.GuessBeatsPerLoop(buffer.Len(), buffer.SampleRate(), *tempo))
	}

	arena := vinyl.NewArena()
	if _, err := arena.Publish(buffer); err != nil { logrus.Fatal(err) }
	var effects []*vinyl.Effect
	for _, kind := range []vinyl.EffectKind{ vinyl.EffectBrake, vinyl.EffectHold, vinyl.EffectPreRoll, vinyl.EffectDistortion } {
		if !*effectFlags[kind] { continue }
		effect := vinyl.NewEffect(kind)
		effect.Engage()
		effects = append(effects, effect)
	}
	chain := vinyl.NewEffectChain(effects...)

	deck := vinyl.NewDeck(arena, cfg.SampleRate, chain)
	deck.SetSpeed(*speed)
	deck.SetTempo(*tempo)
	deck.SetSync(*sync)
	deck.SetLoop(*loop)
	deck.Seek(*start*float64(buffer.SampleRate()))

	frames := int(length.Seconds()*float64(cfg.SampleRate))
	left, right := make([]float64, frames), make([]float64, frames)
	for i := 0; i < frames; i += BlockSize {
		end := i + BlockSize
		if end > frames { end = frames }
		deck.RenderFrames(left[i : end], right[i : end])
	}

	file, err := os.Create(*out)
	if err != nil { logrus.Fatal(err) }
	err = vinyl.EncodeWav(file, left, right, cfg.SampleRate)
	if err != nil {
		file.Close()
		logrus.Fatal(err)
	}
	err = file.Close()
	if err != nil { logrus.Fatal(err) }

	logrus.WithFields(logrus.Fields{
		"file": flag.Arg(0),
		"out": *out,
		"frames": frames,
		"speed": *speed,
		"tempo": *tempo,
		"effects": chain.Len(),
	}).Info("render done")
}
