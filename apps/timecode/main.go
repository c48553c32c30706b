package main

import "os"
import "fmt"
import "flag"
import "time"
import "errors"
import "os/signal"

import pa "github.com/gordonklaus/portaudio"
import "github.com/sirupsen/logrus"

import "github.com/tinne26/vinyl"
import "github.com/tinne26/vinyl/internal/config"
import "github.com/tinne26/vinyl/internal/store"

// This program plays an audio file controlled by a timecode record: the
// stereo control tone coming from the default input device drives the
// speed and direction of the deck, which is played on the default output
// device. With -learn, the first seconds of input are used to learn the
// timecode coefficient of the record, which is stored for later sessions.
const FramesPerBuffer = 256

func main() {
	learn := flag.Bool("learn", false, "learn the timecode coefficient from the input (play the record at normal speed)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-learn] path/to/audio_file.{ogg|wav|mp3}\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load()
	log := logrus.WithFields(logrus.Fields{ "deck": cfg.Deck })
	if err := cfg.Validate(); err != nil { log.Fatal(err) }

	// load waveform and set up the deck
	buffer, err := vinyl.LoadWaveform(flag.Arg(0), cfg.SampleRate, cfg.BeatsPerLoop)
	if err != nil { log.Fatal(err) }
	arena := vinyl.NewArena()
	if _, err := arena.Publish(buffer); err != nil { log.Fatal(err) }
	deck := vinyl.NewDeck(arena, cfg.SampleRate, nil)
	deck.SetTimecodeMode(true)
	deck.SetLoop(true)
	deck.SetTempo(cfg.Tempo)

	deck.SetSpeedProcessor(vinyl.NewSpeedProcessor(cfg.LearnHops, cfg.AmplitudeFloor))

	// restore the learned timecode
	var states *store.Store
	if cfg.StateDB != "" {
		states, err = store.Open(cfg.StateDB)
		if err != nil { log.Fatal(err) }
		defer states.Close()
		timecode, err := states.LoadTimecode(cfg.Deck)
		switch {
		case err == nil:
			deck.SpeedProcessor().SetTimecode(timecode)
			log.WithField("timecode", timecode).Info("timecode restored")
		case errors.Is(err, store.ErrNotFound):
			log.Info("no stored timecode, using the default one")
		default:
			log.Fatal(err)
		}
	}
	if *learn { deck.SpeedProcessor().StartLearn() }

	// open the duplex stream
	err = pa.Initialize()
	if err != nil { log.Fatal(err) }
	defer pa.Terminate()

	stream, err := pa.OpenDefaultStream(2, 2, float64(cfg.SampleRate), FramesPerBuffer, func(in, out [][]float32) {
		deck.Acquire()
		for i := range out[0] {
			deck.FeedTimecode(float64(in[0][i]), float64(in[1][i]))
			left, right := deck.Frame()
			out[0][i], out[1][i] = float32(left), float32(right)
		}
	})
	if err != nil { log.Fatal(err) }
	defer stream.Close()

	err = stream.Start()
	if err != nil { log.Fatal(err) }
	log.WithFields(logrus.Fields{
		"file": flag.Arg(0),
		"sample_rate": cfg.SampleRate,
		"learn": *learn,
	}).Info("timecode deck started")

	// run until interrupted. The speed processor belongs to the audio
	// callback, so the only state read here is the published position.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	learnTime := time.Duration(cfg.LearnHops*vinyl.HopSize)*time.Second/time.Duration(cfg.SampleRate)
	var learnDone <-chan time.Time
	if *learn { learnDone = time.After(learnTime + time.Second) }
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-interrupt:
			running = false
		case <-learnDone:
			learnDone = nil
			log.Info("learning window over")
		case <-ticker.C:
			fmt.Printf("\rposition: %.2fs   ", deck.Position()/float64(buffer.SampleRate()))
		}
	}
	fmt.Println()

	err = stream.Stop()
	if err != nil { log.Error(err) }

	// with the stream stopped the processor can be read safely
	if *learn && states != nil {
		timecode := deck.SpeedProcessor().Timecode()
		if deck.SpeedProcessor().IsLearning() {
			log.Warn("learning didn't complete, timecode not saved")
		} else if err := states.SaveTimecode(cfg.Deck, timecode); err != nil {
			log.Error(err)
		}
	}
}
