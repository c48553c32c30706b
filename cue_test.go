package vinyl

import "math"
import "math/rand"
import "testing"

func TestCueAdd(t *testing.T) {
	tests := []struct {
		cue CuePoint
		offset float64
		index int64
		frac float64
	}{
		{ CuePoint{ 0, 0.0 },   0.5,  0, 0.5 },
		{ CuePoint{ 9, 0.9 },   0.5, 10, 0.4 },
		{ CuePoint{ 3, 0.25 }, -0.5,  2, 0.75 },
		{ CuePoint{ 0, 0.0 },  -2.5, -3, 0.5 },
		{ CuePoint{ 5, 0.5 },  10.0, 15, 0.5 },
	}
	for _, test := range tests {
		got := test.cue.Add(test.offset)
		if got.Index != test.index || math.Abs(got.Frac - test.frac) > 1e-9 {
			t.Fatalf("%v.Add(%f) expected {%d %f} but got %v", test.cue, test.offset, test.index, test.frac, got)
		}
	}
}

func TestCueFracAlwaysNormalized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cue := CuePoint{}
	for i := 0; i < 10000; i++ {
		cue = cue.Add((rng.Float64() - 0.5)*8)
		if cue.Frac < 0 || cue.Frac >= 1 {
			t.Fatalf("fraction out of [0, 1) after %d additions: %v", i, cue)
		}
	}
	// tiny negative offsets are the usual suspects for a fraction of 1.0
	cue = CuePoint{ 4, 0 }.Add(-1e-18)
	if cue.Frac < 0 || cue.Frac >= 1 {
		t.Fatalf("fraction out of [0, 1) for tiny negative offset: %v", cue)
	}
}

func TestCueCompare(t *testing.T) {
	a := CuePoint{ 1, 0.5 }
	b := CuePoint{ 1, 0.75 }
	c := CuePoint{ 2, 0.0 }
	if !a.Less(b) || !b.Less(c) || !a.Less(c) { t.Fatal("expected a < b < c") }
	if c.Compare(a) != 1 || a.Compare(a) != 0 || a.Compare(c) != -1 {
		t.Fatal("unexpected Compare results")
	}
}

func TestCueNormalizeLoop(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const length = 10
	for i := 0; i < 5000; i++ {
		cue := CueAt((rng.Float64() - 0.5)*1000)
		cue = cue.Add((rng.Float64() - 0.5)*100).Normalize(length, true)
		if cue.Index < 0 || cue.Index >= length {
			t.Fatalf("looped index out of range: %v", cue)
		}
	}

	cue := CuePoint{ -1, 0.25 }.Normalize(length, true)
	if cue.Index != 9 || cue.Frac != 0.25 {
		t.Fatalf("expected {9 0.25} but got %v", cue)
	}
}

func TestCueNormalizeOneShot(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	const length = 10
	for i := 0; i < 5000; i++ {
		cue := CueAt((rng.Float64() - 0.5)*100).Normalize(length, false)
		if cue.Index < 0 || cue.Index > length - 1 {
			t.Fatalf("clamped index out of range: %v", cue)
		}
	}

	if cue := (CuePoint{ 12, 0.5 }).Normalize(length, false); cue != (CuePoint{ 9, 0 }) {
		t.Fatalf("expected hold at {9 0} but got %v", cue)
	}
	if cue := (CuePoint{ -3, 0.5 }).Normalize(length, false); cue != (CuePoint{ 0, 0 }) {
		t.Fatalf("expected hold at {0 0} but got %v", cue)
	}
	if cue := (CuePoint{ 9, 0.5 }).Normalize(length, false); cue != (CuePoint{ 9, 0 }) {
		t.Fatalf("expected the last sample to hold at {9 0} but got %v", cue)
	}
	if cue := (CuePoint{ 4, 0.5 }).Normalize(length, false); cue != (CuePoint{ 4, 0.5 }) {
		t.Fatalf("in range cue modified: %v", cue)
	}
}

func TestCueDistance(t *testing.T) {
	a := CuePoint{ 1, 0 }
	b := CuePoint{ 9, 0 }
	if d := a.Distance(b, 10, false); d != -8 {
		t.Fatalf("expected -8 but got %f", d)
	}
	if d := a.Distance(b, 10, true); d != 2 {
		t.Fatalf("expected wrapped distance 2 but got %f", d)
	}
	if d := b.Distance(a, 10, true); d != -2 {
		t.Fatalf("expected wrapped distance -2 but got %f", d)
	}
}
