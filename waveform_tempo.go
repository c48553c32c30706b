package vinyl

import "math"

// Plays one stereo sample keeping the waveform aligned to the host beat grid.
//
// Two advance rates are involved: the pitch rate (what speed and tune ask
// for) and the tempo rate (what keeps the waveform beats locked to the host
// tempo). The cursor always moves at the pitch rate, while a second grid
// cursor follows the tempo rate. How the two are reconciled depends on the
// ratio between the rates:
//   - Overlap regime (|pitch/tempo| <= 1.3): playback continues on its own
//     path and only re-aligns to the grid when the grid cursor is about to
//     cross a grid subdivision. At that point a secondary cursor is placed
//     right before the subdivision boundary and the output crossfades into it.
//   - Stretch regime (|pitch/tempo| > 1.3): whenever the grid moves more than
//     half a subdivision away from the secondary cursor, the secondary cursor
//     becomes the fading source and a new one starts at the grid position.
//     This granular stitching keeps the tempo while the pitch runs free.
//
// A zero tempo rate (unknown beat count, zero tempo) falls back to plain
// pitched playback. changeCursors works like in [WaveformBuffer.PlayStereoSample].
func (self *WaveformBuffer) PlayStereoSampleTempo(speed, tempo float64, sampleRate int, changeCursors bool) (float64, float64) {
	if len(self.left) < MinWaveformSamples { return 0, 0 }
	tempoRate := self.tempoRate(tempo, sampleRate)
	if tempoRate == 0 || self.beatLength <= 0 {
		return self.playPitched(speed, sampleRate, changeCursors)
	}

	pitchRate := self.pitchRate(speed, sampleRate)
	length := int64(len(self.left))
	state := self.state

	var left, right float64
	if math.Abs(pitchRate/tempoRate) <= stretchThreshold {
		left, right = self.stepOverlap(&state, pitchRate, tempoRate, length)
	} else {
		left, right = self.stepStretch(&state, pitchRate, tempoRate, length)
	}

	if changeCursors { self.state = state }
	return left, right
}

func (self *WaveformBuffer) stepOverlap(state *playhead, pitchRate, tempoRate float64, length int64) (float64, float64) {
	rawCandidate := state.grid.Add(tempoRate)
	first := state.cursor.Add(pitchRate).Normalize(length, self.loop)
	if state.crossfade >= 0 {
		state.overlap = state.overlap.Add(pitchRate).Normalize(length, self.loop)
	}

	// a stopped record doesn't re-align, it would only jump around
	if state.crossfade < 0 && pitchRate != 0 {
		bucketNow  := self.gridBucket(state.grid, tempoRate)
		bucketNext := self.gridBucket(rawCandidate, tempoRate)
		if bucketNow != bucketNext {
			boundary := bucketNext
			if tempoRate < 0 { boundary += 1 }
			target := CueAt(boundary*self.beatLength)
			offset := self.beatOverlapWindow*pitchRate/math.Abs(tempoRate)
			state.overlap = target.Sub(offset).Normalize(length, self.loop)
			state.crossfade = 1.0
			state.fadeStep = crossfadeStep(pitchRate, tempoRate, self.beatOverlapWindow)
		}
	}

	// without an event, playback holds its own alignment instead of
	// drifting towards the raw grid candidate
	state.cursor = first
	state.grid = rawCandidate.Normalize(length, self.loop)

	left, right := self.blend(state)
	if state.crossfade >= 0 {
		state.crossfade -= state.fadeStep
		if state.crossfade <= 0 {
			state.crossfade = crossfadeInactive
			state.cursor = state.overlap
		}
	}
	return left, right
}

func (self *WaveformBuffer) stepStretch(state *playhead, pitchRate, tempoRate float64, length int64) (float64, float64) {
	if state.crossfade < 0 { state.overlap = state.cursor }
	state.cursor  = state.cursor.Add(pitchRate).Normalize(length, self.loop)
	state.overlap = state.overlap.Add(pitchRate).Normalize(length, self.loop)
	candidate := state.grid.Add(tempoRate).Normalize(length, self.loop)

	if state.crossfade <= stretchEpsilon {
		drift := candidate.Distance(state.overlap, length, self.loop)
		if math.Abs(drift) > self.beatLength/2 {
			state.cursor = state.overlap
			state.overlap = candidate
			state.crossfade = 1.0
			state.fadeStep = crossfadeStep(pitchRate, tempoRate, self.beatOverlapWindow)
		}
	}
	state.grid = candidate

	left, right := self.blend(state)
	state.crossfade -= state.fadeStep
	if state.crossfade < stretchEpsilon { state.crossfade = stretchEpsilon }
	return left, right
}

// Index of the grid subdivision the position falls in, shifted by the
// overlap window in the playing direction so events fire before the
// actual boundary is reached.
func (self *WaveformBuffer) gridBucket(cue CuePoint, tempoRate float64) float64 {
	shift := self.beatOverlapWindow
	if tempoRate < 0 { shift = -shift }
	return math.Floor((cue.Float() + shift)/self.beatLength)
}

func crossfadeStep(pitchRate, tempoRate, window float64) float64 {
	if pitchRate == 0 || window <= 0 { return 1.0 }
	return math.Abs(tempoRate/(window*pitchRate))
}

// Renders the cursor and, while a crossfade is active, mixes it with the
// secondary cursor. The correction term lifts the middle of the blend so
// the fade has no hard edges.
func (self *WaveformBuffer) blend(state *playhead) (float64, float64) {
	left, right := self.render(state.cursor)
	progress := state.crossfade
	if progress < 0 { return left, right }

	overLeft, overRight := self.render(state.overlap)
	correction := (1 - math.Cos(progress*2*math.Pi))/10
	left  = left *(progress + correction) + overLeft *(1 - progress + correction)
	right = right*(progress + correction) + overRight*(1 - progress + correction)
	return left, right
}
