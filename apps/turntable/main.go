package main

import "os"
import "fmt"
import "errors"
import "strconv"
import "runtime"
import "path/filepath"

import "image"
import "image/color"

import "github.com/hajimehoshi/ebiten/v2"
import "github.com/hajimehoshi/ebiten/v2/audio"
import "github.com/hajimehoshi/ebiten/v2/ebitenutil"
import "github.com/hajimehoshi/ebiten/v2/inpututil"
import "github.com/sirupsen/logrus"

import "github.com/tinne26/vinyl"
import "github.com/tinne26/vinyl/internal/config"
import "github.com/tinne26/vinyl/internal/store"

// note: directX still has some issues that prevent this
//       program from performing reasonably
func init() {
	if runtime.GOOS == "windows" {
		os.Setenv("EBITEN_GRAPHICS_LIBRARY", "opengl")
	}
}

// This program plays an audio file on a virtual deck controlled from the
// keyboard. It expects the path to an .ogg, .wav or .mp3 file as its only
// argument, or none to reopen the file last played on the configured deck.
const ScreenWidth  = 680
const ScreenHeight = 480
const WaveHeight   = 96
const WaveTop      = 300

var effectKinds = []vinyl.EffectKind{
	vinyl.EffectBrake, vinyl.EffectHold, vinyl.EffectPreRoll, vinyl.EffectDistortion,
}

var effectKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
}

type Game struct {
	deck *vinyl.Deck
	player *audio.Player
	filename string
	length int
	peaks []float64 // one per screen column
}

func (self *Game) Layout(width, height int) (int, int) {
	return ScreenWidth, ScreenHeight
}

func (self *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if self.player.IsPlaying() {
			self.player.Pause()
		} else {
			self.player.Play()
		}
	}

	// speed, with SHIFT for fine changes
	change := 0.1
	if ebiten.IsKeyPressed(ebiten.KeyShift) { change = 0.01 }
	speed := self.deck.Speed()
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && speed < 2.0 {
		self.deck.SetSpeed(clamp(speed + change, -2.0, 2.0))
	} else if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && speed > -2.0 {
		self.deck.SetSpeed(clamp(speed - change, -2.0, 2.0))
	}

	// nudging and cueing
	nudge := float64(self.deck.SampleRate())/10
	if ebiten.IsKeyPressed(ebiten.KeyControl) { nudge *= 10 }
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		self.deck.Seek(self.deck.Position() - nudge)
	} else if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		self.deck.Seek(self.deck.Position() + nudge)
	} else if inpututil.IsKeyJustPressed(ebiten.KeyHome) {
		self.deck.Seek(0)
	}

	// host tempo and tune
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		self.deck.SetTempo(clamp(self.deck.Tempo() - 1, 20, 300))
	} else if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		self.deck.SetTempo(clamp(self.deck.Tempo() + 1, 20, 300))
	} else if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		self.deck.SetTune(clamp(self.deck.Tune() - 0.01, 0.5, 2.0))
	} else if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		self.deck.SetTune(clamp(self.deck.Tune() + 0.01, 0.5, 2.0))
	}

	// flags
	if inpututil.IsKeyJustPressed(ebiten.KeyL) { self.deck.SetLoop(!self.deck.Loop()) }
	if inpututil.IsKeyJustPressed(ebiten.KeyS) { self.deck.SetSync(!self.deck.Sync()) }
	if inpututil.IsKeyJustPressed(ebiten.KeyR) { self.deck.SetReverse(!self.deck.Reverse()) }

	// effects, held down while the key is pressed
	for i, key := range effectKeys {
		effect := self.deck.Effects().Effect(i)
		if ebiten.IsKeyPressed(key) {
			if !effect.Engaged() { effect.Engage() }
		} else if effect.Engaged() {
			effect.Release()
		}
	}

	return nil
}

func (self *Game) Draw(screen *ebiten.Image) {
	const yStride = 16
	const yStrideExtra = yStride + 10
	const pad = 12

	self.drawWaveform(screen)

	x, y := pad, pad
	fpsStr := strconv.FormatFloat(ebiten.CurrentFPS(), 'f', 2, 64)
	ebitenutil.DebugPrintAt(screen, "File: " + self.filename + " (" + fpsStr + "fps)", x, y) ; y += yStrideExtra
	ebitenutil.DebugPrintAt(screen, "Speed: x" + strconv.FormatFloat(self.deck.Speed(), 'f', 2, 64), x, y) ; y += yStride
	ebitenutil.DebugPrintAt(screen, "Tempo: " + strconv.FormatFloat(self.deck.Tempo(), 'f', 0, 64) + "bpm", x, y) ; y += yStride
	ebitenutil.DebugPrintAt(screen, "Tune: x" + strconv.FormatFloat(self.deck.Tune(), 'f', 2, 64), x, y) ; y += yStride
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Loop: %s  Sync: %s  Reverse: %s",
		onOff(self.deck.Loop()), onOff(self.deck.Sync()), onOff(self.deck.Reverse())), x, y) ; y += yStrideExtra

	for i := range effectKinds {
		effect := self.deck.Effects().Effect(i)
		line := fmt.Sprintf("[%d] %s", i + 1, effect.Kind)
		if effect.Engaged() { line += " *" }
		ebitenutil.DebugPrintAt(screen, line, x, y) ; y += yStride
	}

	spaceAction := "play"
	if self.player.IsPlaying() { spaceAction = "pause" }
	help := "(SPACE to " + spaceAction + ") (up/down speed, left/right nudge, [ ] tempo, - = tune, L S R flags)"
	ebitenutil.DebugPrintAt(screen, help, x, ScreenHeight - pad - yStride)
}

func (self *Game) drawWaveform(screen *ebiten.Image) {
	waveColor := color.RGBA{ 0, 255, 255, 255 }
	for x, peak := range self.peaks {
		height := int(peak*WaveHeight)
		if height == 0 { height = 1 }
		screen.SubImage(image.Rect(x, WaveTop - height, x + 1, WaveTop + height)).(*ebiten.Image).Fill(waveColor)
	}

	if self.length == 0 { return }
	headX := int(self.deck.Position()*float64(ScreenWidth)/float64(self.length))
	headColor := color.RGBA{ 255, 0, 255, 255 }
	screen.SubImage(image.Rect(headX, WaveTop - WaveHeight, headX + 2, WaveTop + WaveHeight)).(*ebiten.Image).Fill(headColor)
}

func computePeaks(buffer *vinyl.WaveformBuffer, columns int) []float64 {
	peaks := make([]float64, columns)
	length := buffer.Len()
	for i := range peaks {
		from := i*length/columns
		to := (i + 1)*length/columns
		peaks[i] = buffer.PeakSample(from, to)
	}
	return peaks
}

func clamp(value, min, max float64) float64 {
	if value < min { return min }
	if value > max { return max }
	return value
}

func onOff(on bool) string {
	if on { return "on" }
	return "off"
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil { logrus.Fatal(err) }

	// open the state database, if any
	var states *store.Store
	saved := store.DeckState{ Name: cfg.Deck, Tune: 1.0, Level: 1.0 }
	if cfg.StateDB != "" {
		var err error
		states, err = store.Open(cfg.StateDB)
		if err != nil { logrus.Fatal(err) }
		defer states.Close()
		saved, err = states.LoadDeck(cfg.Deck)
		if err != nil && !errors.Is(err, store.ErrNotFound) { logrus.Fatal(err) }
		if errors.Is(err, store.ErrNotFound) { saved.Tune, saved.Level = 1.0, 1.0 }
	}

	// get the file to play
	filename := saved.Path
	if len(os.Args) == 2 {
		var err error
		filename, err = filepath.Abs(os.Args[1])
		if err != nil { logrus.Fatal(err) }
	}
	if filename == "" || len(os.Args) > 2 {
		fmt.Print("Usage: expects one argument pointing to the audio file to play.\n")
		os.Exit(1)
	}

	// load the waveform
	beats := cfg.BeatsPerLoop
	if beats == 0 && saved.Path == filename { beats = saved.BeatsPerLoop }
	buffer, err := vinyl.LoadWaveform(filename, cfg.SampleRate, beats)
	if err != nil { logrus.Fatal(err) }
	if beats == 0 {
		beats = vinyl.GuessBeatsPerLoop(buffer.Len(), buffer.SampleRate(), cfg.Tempo)
		buffer.SetBeatsPerLoop(beats)
	}

	// set up the deck
	arena := vinyl.NewArena()
	if _, err := arena.Publish(buffer); err != nil { logrus.Fatal(err) }
	effects := make([]*vinyl.Effect, len(effectKinds))
	for i, kind := range effectKinds { effects[i] = vinyl.NewEffect(kind) }
	deck := vinyl.NewDeck(arena, cfg.SampleRate, vinyl.NewEffectChain(effects...))
	deck.SetTempo(cfg.Tempo)
	deck.SetLoop(saved.Loop)
	deck.SetSync(saved.Sync)
	deck.SetReverse(saved.Reverse)
	deck.SetTune(saved.Tune)
	deck.SetLevel(saved.Level)

	// start playing
	ctx := audio.NewContext(cfg.SampleRate)
	player, err := ctx.NewPlayer(deck)
	if err != nil { logrus.Fatal(err) }
	player.SetBufferSize(cfg.BufferSize)
	player.Play()
	logrus.WithFields(logrus.Fields{
		"file": filename,
		"beats": beats,
		"sample_rate": cfg.SampleRate,
	}).Info("turntable started")

	game := &Game{
		deck: deck,
		player: player,
		filename: filepath.Base(filename),
		length: buffer.Len(),
		peaks: computePeaks(buffer, ScreenWidth),
	}
	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("vinyl turntable")
	err = ebiten.RunGame(game)
	if err != nil { logrus.Fatal(err) }

	// remember the deck for the next session
	if states == nil { return }
	err = states.SaveDeck(store.DeckState{
		Name: cfg.Deck,
		Path: filename,
		Loop: deck.Loop(),
		Sync: deck.Sync(),
		Reverse: deck.Reverse(),
		Tune: deck.Tune(),
		Level: deck.Level(),
		BeatsPerLoop: beats,
	})
	if err != nil { logrus.Error(err) }
}
