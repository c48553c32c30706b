package vinyl

import "math"
import "time"

// Minimum number of samples a waveform needs so the 4-point interpolation
// has something to work with. Renders on shorter buffers produce silence.
const MinWaveformSamples = 4

// Beat lengths are subdivided by this factor to obtain the re-sync grid.
const overlapMultiple = 8

// Pitch/tempo rate ratio above which the stitching switches from beat
// overlaps to free stretching.
const stretchThreshold = 1.3

// The stretch regime never lets the crossfade go inactive, it stays at
// this small positive value instead.
const stretchEpsilon = 1e-4

const crossfadeInactive = -1.0

// A WaveformBuffer owns a stereo waveform together with the state needed to
// play it like a record: the current cue point, the flags that control the
// playback and the beat grid used when syncing to the host tempo.
//
// Sample data and sample rate are immutable after creation. Everything else
// is meant to be touched only from the audio thread once the buffer has been
// handed over (see [Arena]).
type WaveformBuffer struct {
	left  []float64
	right []float64
	sampleRate int

	loop bool
	syncToHost bool
	reverse bool
	tune float64
	level float64

	beatsPerLoop int
	beatLength float64
	beatOverlapWindow float64

	state playhead
}

// Playback state. Kept in its own struct so renders can work on a copy
// and only commit it when cursors are allowed to change.
type playhead struct {
	cursor  CuePoint // position actually rendered
	grid    CuePoint // position on the host tempo grid
	overlap CuePoint // secondary position, only meaningful while blending
	crossfade float64 // < 0 inactive, otherwise progress counting down to 0
	fadeStep float64
}

// Creates a new WaveformBuffer from the given channels, which must have
// the same length. If right is nil, left is used for both channels.
// The slices are owned by the buffer after this call.
//
// Panics if the channel lengths differ or sampleRate is not positive.
func NewWaveformBuffer(left, right []float64, sampleRate int) *WaveformBuffer {
	if right == nil { right = left }
	if len(left) != len(right) { panic("NewWaveformBuffer channels must have the same length") }
	if sampleRate <= 0 { panic("NewWaveformBuffer sampleRate must be positive") }
	return &WaveformBuffer {
		left: left,
		right: right,
		sampleRate: sampleRate,
		tune: 1.0,
		level: 1.0,
		state: playhead{ crossfade: crossfadeInactive },
	}
}

// Returns the number of samples per channel.
func (self *WaveformBuffer) Len() int { return len(self.left) }

// Returns the native sample rate of the waveform.
func (self *WaveformBuffer) SampleRate() int { return self.sampleRate }

// Returns the underlying channel data. The slices must not be modified.
func (self *WaveformBuffer) Channels() ([]float64, []float64) {
	return self.left, self.right
}

func (self *WaveformBuffer) Loop() bool { return self.loop }
func (self *WaveformBuffer) SetLoop(loop bool) { self.loop = loop }
func (self *WaveformBuffer) SyncToHost() bool { return self.syncToHost }
func (self *WaveformBuffer) SetSyncToHost(sync bool) { self.syncToHost = sync }
func (self *WaveformBuffer) Reverse() bool { return self.reverse }
func (self *WaveformBuffer) SetReverse(reverse bool) { self.reverse = reverse }
func (self *WaveformBuffer) Tune() float64 { return self.tune }
func (self *WaveformBuffer) SetTune(tune float64) { self.tune = tune }
func (self *WaveformBuffer) Level() float64 { return self.level }
func (self *WaveformBuffer) SetLevel(level float64) { self.level = level }

// Returns the number of beats in the whole waveform, or 0 if unknown.
func (self *WaveformBuffer) BeatsPerLoop() int { return self.beatsPerLoop }

// Sets the number of beats in the whole waveform and recomputes the beat
// grid. Zero (or negative) values mark the beat count as unknown, which
// disables tempo sync.
func (self *WaveformBuffer) SetBeatsPerLoop(beats int) {
	if beats <= 0 {
		self.beatsPerLoop = 0
		self.beatLength = 0
		self.beatOverlapWindow = 0
		return
	}
	self.beatsPerLoop = beats
	self.beatLength = float64(len(self.left))/float64(beats)/overlapMultiple
	self.beatOverlapWindow = self.beatLength*0.5
}

// Returns the length of a grid subdivision in samples (a beat divided by
// the internal overlap multiple) and the overlap window used to crossfade
// around it.
func (self *WaveformBuffer) BeatGrid() (float64, float64) {
	return self.beatLength, self.beatOverlapWindow
}

// Returns the current cue point.
func (self *WaveformBuffer) Cue() CuePoint { return self.state.cursor }

// Moves playback to the given cue point, cancelling any crossfade.
func (self *WaveformBuffer) SetCue(cue CuePoint) {
	cue = cue.Normalize(int64(len(self.left)), self.loop)
	self.state = playhead{ cursor: cue, grid: cue, overlap: cue, crossfade: crossfadeInactive }
}

// Moves the cue point by the given offset in samples. Returns false and
// does nothing if the waveform is too short to be played.
func (self *WaveformBuffer) MoveCursor(offset float64) bool {
	if len(self.left) < MinWaveformSamples { return false }
	self.SetCue(self.state.cursor.Add(offset))
	return true
}

// Returns whether a crossfade between two cue points is in progress, and
// its current progress (1 at the start, going down towards 0).
func (self *WaveformBuffer) Crossfade() (bool, float64) {
	return self.state.crossfade >= 0, self.state.crossfade
}

// Returns the duration of the given fraction of a beat at the given tempo
// (in beats per minute). Non-positive tempos return zero.
func (self *WaveformBuffer) NoteLength(fractionOfBeat float64, tempo float64) time.Duration {
	if tempo <= 0 { return 0 }
	return time.Duration(fractionOfBeat*60.0/tempo*float64(time.Second))
}

// Returns the highest absolute sample value across both channels in the
// [from, to) range. The range is clipped to the waveform bounds.
func (self *WaveformBuffer) PeakSample(from, to int) float64 {
	if from < 0 { from = 0 }
	if to > len(self.left) { to = len(self.left) }
	peak := 0.0
	for i := from; i < to; i++ {
		peak = math.Max(peak, math.Abs(self.left[i]))
		peak = math.Max(peak, math.Abs(self.right[i]))
	}
	return peak
}

// Returns the interpolated stereo sample at the given cue point, scaled
// by the buffer level. The cue point is normalized first. This doesn't
// modify the playback state.
func (self *WaveformBuffer) RenderAt(cue CuePoint) (float64, float64) {
	if len(self.left) < MinWaveformSamples { return 0, 0 }
	cue = cue.Normalize(int64(len(self.left)), self.loop)
	return self.render(cue)
}

func (self *WaveformBuffer) render(cue CuePoint) (float64, float64) {
	left  := interpolateAt(self.left , cue)*self.level
	right := interpolateAt(self.right, cue)*self.level
	return left, right
}

// Plays one stereo sample. The cursor advances according to speed, tune
// and the ratio between the waveform and host sample rates, and the
// interpolated sample at the advanced position is returned.
//
// When tempo sync is enabled and the beat count is known, this delegates
// to [WaveformBuffer.PlayStereoSampleTempo]. Otherwise tempo is ignored.
//
// If changeCursors is false, the playback state is left untouched, which
// allows peeking ahead without affecting playback. Waveforms shorter than
// [MinWaveformSamples] always produce silence.
func (self *WaveformBuffer) PlayStereoSample(speed, tempo float64, sampleRate int, changeCursors bool) (float64, float64) {
	if self.syncToHost && self.beatsPerLoop > 0 {
		return self.PlayStereoSampleTempo(speed, tempo, sampleRate, changeCursors)
	}
	return self.playPitched(speed, sampleRate, changeCursors)
}

func (self *WaveformBuffer) playPitched(speed float64, sampleRate int, changeCursors bool) (float64, float64) {
	if len(self.left) < MinWaveformSamples { return 0, 0 }

	state := self.state
	state.cursor = state.cursor.Add(self.pitchRate(speed, sampleRate)).Normalize(int64(len(self.left)), self.loop)
	state.grid = state.cursor
	state.overlap = state.cursor
	state.crossfade = crossfadeInactive
	left, right := self.render(state.cursor)
	if changeCursors { self.state = state }
	return left, right
}

func (self *WaveformBuffer) direction() float64 {
	if self.reverse { return -1 }
	return 1
}

// Advance rate in waveform samples per host sample, derived from the
// requested speed and tune.
func (self *WaveformBuffer) pitchRate(speed float64, sampleRate int) float64 {
	if sampleRate <= 0 { sampleRate = self.sampleRate }
	return speed*self.tune*(float64(self.sampleRate)/float64(sampleRate))*self.direction()
}

// Advance rate in waveform samples per host sample that keeps the whole
// waveform spanning beatsPerLoop beats at the given host tempo. Zero when
// the beat count or the tempo are unknown.
func (self *WaveformBuffer) tempoRate(tempo float64, sampleRate int) float64 {
	if self.beatsPerLoop <= 0 || tempo <= 0 || sampleRate <= 0 { return 0 }
	length := float64(len(self.left))
	return self.direction()*length*tempo/60.0/float64(sampleRate)/float64(self.beatsPerLoop)
}
