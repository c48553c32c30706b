package vinyl

import "math"
import "testing"
import "time"

func newTestWaveform(samples ...float64) *WaveformBuffer {
	return NewWaveformBuffer(samples, nil, 44100)
}

func rampWaveform(length int) *WaveformBuffer {
	samples := make([]float64, length)
	for i := range samples { samples[i] = float64(i)/float64(length) }
	return NewWaveformBuffer(samples, nil, 44100)
}

func TestPlayRendersHermite(t *testing.T) {
	buffer := newTestWaveform(0, 1, 0, -1)
	buffer.SetCue(CuePoint{ 1, 0.5 })
	left, right := buffer.PlayStereoSample(0, 120, 44100, true)
	expect := Hermite4(0, 1, 0, -1, 0.5)
	if left != expect || right != expect {
		t.Fatalf("expected %v on both channels but got %v, %v", expect, left, right)
	}
}

func TestPlayIntegerPositionIsExact(t *testing.T) {
	buffer := newTestWaveform(0.1, -0.7, 0.3, 0.9, -0.2)
	for i := 0; i < buffer.Len(); i++ {
		buffer.SetCue(CuePoint{ Index: int64(i) })
		left, _ := buffer.PlayStereoSample(0, 0, 44100, true)
		if left != buffer.left[i] {
			t.Fatalf("at index %d expected %v but got %v", i, buffer.left[i], left)
		}
	}
}

func TestPlayLevel(t *testing.T) {
	buffer := newTestWaveform(0, 1, 0, -1)
	buffer.SetLevel(0.5)
	buffer.SetCue(CuePoint{ 1, 0 })
	left, _ := buffer.PlayStereoSample(0, 0, 44100, true)
	if left != 0.5 { t.Fatalf("expected level scaled 0.5 but got %v", left) }
}

func TestPlayZeroSpeedHolds(t *testing.T) {
	buffer := rampWaveform(64)
	buffer.SetCue(CuePoint{ 10, 0.3 })
	for _, tempo := range []float64{ 0, 90, 120, 174 } {
		for i := 0; i < 100; i++ {
			buffer.PlayStereoSample(0, tempo, 44100, true)
		}
		if cue := buffer.Cue(); cue.Index != 10 {
			t.Fatalf("speed 0 at tempo %f moved the cursor to %v", tempo, cue)
		}
	}
}

func TestPlayOneShotBoundaryHold(t *testing.T) {
	buffer := rampWaveform(10)
	buffer.SetCue(CuePoint{ 9, 0 })
	buffer.PlayStereoSample(1, 0, 44100, true)
	if cue := buffer.Cue(); cue != (CuePoint{ 9, 0 }) {
		t.Fatalf("expected cursor to hold at {9 0} but got %v", cue)
	}

	for _, speed := range []float64{ 0.5, 0.25 } {
		held := constantWaveform(1, 10)
		held.SetCue(CuePoint{ 9, 0 })
		for i := 0; i < 6; i++ {
			left, _ := held.PlayStereoSample(speed, 0, 44100, true)
			if left != 1 { t.Fatalf("speed %v: expected steady boundary sample 1 but got %v", speed, left) }
			if cue := held.Cue(); cue != (CuePoint{ 9, 0 }) {
				t.Fatalf("speed %v: expected cursor to hold at {9 0} but got %v", speed, cue)
			}
		}
	}

	buffer.SetReverse(true)
	buffer.SetCue(CuePoint{ 0, 0.5 })
	for i := 0; i < 10; i++ { buffer.PlayStereoSample(3, 0, 44100, true) }
	if cue := buffer.Cue(); cue != (CuePoint{ 0, 0 }) {
		t.Fatalf("expected reverse scratch to hold at {0 0} but got %v", cue)
	}
}

func TestPlayLoopWraps(t *testing.T) {
	buffer := rampWaveform(10)
	buffer.SetLoop(true)
	buffer.SetCue(CuePoint{ 9, 0.9 })
	buffer.PlayStereoSample(0.5, 0, 44100, true)
	cue := buffer.Cue()
	if cue.Index != 0 || math.Abs(cue.Frac - 0.4) > 1e-9 {
		t.Fatalf("expected wrap to {0 0.4} but got %v", cue)
	}
}

func TestPlayPeekKeepsCursor(t *testing.T) {
	buffer := rampWaveform(32)
	buffer.SetCue(CuePoint{ 4, 0 })
	peekLeft, _ := buffer.PlayStereoSample(2, 0, 44100, false)
	if cue := buffer.Cue(); cue != (CuePoint{ 4, 0 }) {
		t.Fatalf("peek render moved the cursor to %v", cue)
	}
	left, _ := buffer.PlayStereoSample(2, 0, 44100, true)
	if left != peekLeft {
		t.Fatalf("peek and real renders differ: %v vs %v", peekLeft, left)
	}
	if cue := buffer.Cue(); cue != (CuePoint{ 6, 0 }) {
		t.Fatalf("expected cursor at {6 0} but got %v", cue)
	}
}

func TestPlaySampleRateRatioAndTune(t *testing.T) {
	buffer := NewWaveformBuffer(make([]float64, 1000), nil, 48000)
	buffer.SetTune(1.5)
	buffer.PlayStereoSample(1, 0, 24000, true)
	if cue := buffer.Cue(); cue.Index != 3 || cue.Frac != 0 {
		t.Fatalf("expected advance of 1.5*2 = 3 samples but got %v", cue)
	}
}

func TestPlayShortBufferIsSilent(t *testing.T) {
	buffer := newTestWaveform(1, 1, 1)
	left, right := buffer.PlayStereoSample(1, 120, 44100, true)
	if left != 0 || right != 0 { t.Fatalf("expected silence but got %v, %v", left, right) }
	if buffer.MoveCursor(1) { t.Fatal("MoveCursor must fail on buffers under 4 samples") }
	left, right = buffer.RenderAt(CuePoint{ 1, 0 })
	if left != 0 || right != 0 { t.Fatalf("expected silent RenderAt but got %v, %v", left, right) }
}

func TestMoveCursor(t *testing.T) {
	buffer := rampWaveform(16)
	buffer.SetLoop(true)
	if !buffer.MoveCursor(-2.5) { t.Fatal("MoveCursor failed") }
	cue := buffer.Cue()
	if cue.Index != 13 || cue.Frac != 0.5 {
		t.Fatalf("expected {13 0.5} but got %v", cue)
	}
}

func TestNoteLength(t *testing.T) {
	buffer := rampWaveform(16)
	if got := buffer.NoteLength(1, 120); got != 500*time.Millisecond {
		t.Fatalf("expected a beat at 120bpm to last 500ms but got %v", got)
	}
	if got := buffer.NoteLength(0.25, 60); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms but got %v", got)
	}
	if got := buffer.NoteLength(1, 0); got != 0 {
		t.Fatalf("expected 0 for tempo 0 but got %v", got)
	}
}

func TestPeakSample(t *testing.T) {
	buffer := NewWaveformBuffer([]float64{ 0.1, -0.2, 0.3, 0.0 }, []float64{ 0, 0, -0.9, 0.5 }, 44100)
	if peak := buffer.PeakSample(0, 2); peak != 0.2 { t.Fatalf("expected 0.2 but got %v", peak) }
	if peak := buffer.PeakSample(-5, 50); peak != 0.9 { t.Fatalf("expected 0.9 but got %v", peak) }
	if peak := buffer.PeakSample(3, 1); peak != 0 { t.Fatalf("expected 0 for empty range but got %v", peak) }
}

func TestBeatGrid(t *testing.T) {
	buffer := rampWaveform(64000)
	buffer.SetBeatsPerLoop(4)
	beatLength, window := buffer.BeatGrid()
	if beatLength != 2000 || window != 1000 {
		t.Fatalf("expected grid 2000/1000 but got %v/%v", beatLength, window)
	}
	buffer.SetBeatsPerLoop(0)
	if beatLength, _ = buffer.BeatGrid(); beatLength != 0 {
		t.Fatalf("expected zero grid for unknown beats but got %v", beatLength)
	}
}

func BenchmarkPlayStereoSample(b *testing.B) {
	buffer := rampWaveform(44100)
	buffer.SetLoop(true)
	for i := 0; i < b.N; i++ {
		buffer.PlayStereoSample(1.01, 120, 44100, true)
	}
}
