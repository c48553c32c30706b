package vinyl

import "math"
import "sync/atomic"

// A Deck plays the current waveform of an [Arena] as a L16 little-endian
// stereo stream (Ebitengine's default audio format), so it can be given
// directly to an audio player.
//
// Playback parameters can be changed from any goroutine: they are stored
// atomically and applied to the waveform at the start of each read. The
// waveform itself is only touched from the reading goroutine.
//
// In timecode mode the speed comes from a [SpeedProcessor] fed through
// [Deck.FeedTimecode] instead of [Deck.SetSpeed].
type Deck struct {
	arena *Arena
	effects *EffectChain
	sampleRate int

	speed atomicFloat
	tempo atomicFloat
	tune  atomicFloat
	level atomicFloat
	loop atomic.Bool
	sync atomic.Bool
	reverse atomic.Bool
	timecodeMode atomic.Bool
	position atomicFloat
	seek atomicFloat
	seekPending atomic.Bool

	timecode *SpeedProcessor
	current *WaveformBuffer
	scratchLeft  []float64
	scratchRight []float64
}

// Creates a new deck playing from the given arena at the given host sample
// rate. effects may be nil.
func NewDeck(arena *Arena, sampleRate int, effects *EffectChain) *Deck {
	if sampleRate <= 0 { panic("NewDeck sampleRate must be positive") }
	if effects == nil { effects = NewEffectChain() }
	deck := &Deck {
		arena: arena,
		effects: effects,
		sampleRate: sampleRate,
		timecode: NewDefaultSpeedProcessor(),
	}
	deck.speed.Store(1.0)
	deck.tempo.Store(120)
	deck.tune.Store(1.0)
	deck.level.Store(1.0)
	return deck
}

func (self *Deck) Speed() float64 { return self.speed.Load() }
func (self *Deck) SetSpeed(speed float64) { self.speed.Store(speed) }
func (self *Deck) Tempo() float64 { return self.tempo.Load() }
func (self *Deck) SetTempo(bpm float64) { self.tempo.Store(bpm) }
func (self *Deck) Tune() float64 { return self.tune.Load() }
func (self *Deck) SetTune(tune float64) { self.tune.Store(tune) }
func (self *Deck) Level() float64 { return self.level.Load() }
func (self *Deck) SetLevel(level float64) { self.level.Store(level) }
func (self *Deck) Loop() bool { return self.loop.Load() }
func (self *Deck) SetLoop(loop bool) { self.loop.Store(loop) }
func (self *Deck) Sync() bool { return self.sync.Load() }
func (self *Deck) SetSync(sync bool) { self.sync.Store(sync) }
func (self *Deck) Reverse() bool { return self.reverse.Load() }
func (self *Deck) SetReverse(reverse bool) { self.reverse.Store(reverse) }
func (self *Deck) TimecodeMode() bool { return self.timecodeMode.Load() }
func (self *Deck) SetTimecodeMode(on bool) { self.timecodeMode.Store(on) }
func (self *Deck) Effects() *EffectChain { return self.effects }
func (self *Deck) SampleRate() int { return self.sampleRate }

// Returns the playback position (in waveform samples) as of the last
// rendered frame. Safe to call from any goroutine.
func (self *Deck) Position() float64 { return self.position.Load() }

// Requests playback to jump to the given position (in waveform samples).
// The jump happens at the start of the next block of frames.
func (self *Deck) Seek(position float64) {
	self.seek.Store(position)
	self.seekPending.Store(true)
}

// Returns the deck's speed processor. It must only be used from the
// goroutine that renders and feeds the deck.
func (self *Deck) SpeedProcessor() *SpeedProcessor { return self.timecode }

// Replaces the deck's speed processor. Must be called before the deck
// starts rendering. Panics if processor is nil.
func (self *Deck) SetSpeedProcessor(processor *SpeedProcessor) {
	if processor == nil { panic("Deck.SetSpeedProcessor processor can't be nil") }
	self.timecode = processor
}

// Feeds one stereo sample of control signal to the speed processor.
func (self *Deck) FeedTimecode(left, right float64) {
	self.timecode.Process(left, right)
}

// Implements [io.Reader]. The buffer is always filled completely (minus any
// trailing incomplete frame) and the error is always nil. Silence is
// produced while no playable waveform is available.
func (self *Deck) Read(buffer []byte) (int, error) {
	frames := len(buffer)/L16FrameSize
	if cap(self.scratchLeft) < frames {
		self.scratchLeft  = make([]float64, frames)
		self.scratchRight = make([]float64, frames)
	}
	left, right := self.scratchLeft[ : frames], self.scratchRight[ : frames]
	self.RenderFrames(left, right)
	return EncodeL16Block(buffer, left, right)*L16FrameSize, nil
}

// Renders len(left) frames into the given slices, which must have the
// same length. Same as Read, but with float output.
func (self *Deck) RenderFrames(left, right []float64) {
	if len(left) != len(right) { panic("Deck.RenderFrames slices must have the same length") }
	self.acquire()
	for i := range left {
		left[i], right[i] = self.Frame()
	}
	self.publishPosition()
}

// Renders a single frame. Useful when input and output are processed
// sample by sample (timecode mode), where [Deck.FeedTimecode] must be
// interleaved with the renders. Call [Deck.Acquire] once before each
// block of frames.
func (self *Deck) Frame() (float64, float64) {
	if self.current == nil { return 0, 0 }

	transport := Transport{ Speed: self.speed.Load(), Tempo: self.tempo.Load(), SampleRate: self.sampleRate }
	if self.timecodeMode.Load() {
		transport.Speed = self.timecode.RealSpeed()
		left, right := self.effects.Render(self.current, transport)
		gain := math.Min(self.timecode.Volume(), 1.0)
		return left*gain, right*gain
	}
	return self.effects.Render(self.current, transport)
}

// Picks up the current waveform and parameters for the next block of
// frames rendered with [Deck.Frame].
func (self *Deck) Acquire() {
	self.acquire()
	self.publishPosition()
}

func (self *Deck) acquire() {
	buffer := self.arena.Acquire()
	self.current = buffer
	if buffer == nil { return }
	buffer.SetLoop(self.loop.Load())
	buffer.SetSyncToHost(self.sync.Load())
	buffer.SetReverse(self.reverse.Load())
	buffer.SetTune(self.tune.Load())
	buffer.SetLevel(self.level.Load())
	if self.seekPending.Swap(false) {
		buffer.SetCue(CueAt(self.seek.Load()))
	}
}

func (self *Deck) publishPosition() {
	if self.current == nil { return }
	self.position.Store(self.current.Cue().Float())
}

// float64 stored as bits in an atomic uint64
type atomicFloat struct { bits atomic.Uint64 }
func (self *atomicFloat) Load() float64 { return math.Float64frombits(self.bits.Load()) }
func (self *atomicFloat) Store(value float64) { self.bits.Store(math.Float64bits(value)) }
