package vinyl

import "math"
import "testing"

func TestSmootherConverges(t *testing.T) {
	smoother := NewSmoother(8, 0)
	prev := 0.0
	for i := 0; i < 200; i++ {
		value := smoother.Next(1)
		if value < prev || value > 1 {
			t.Fatalf("smoother not monotonic towards target at step %d: %f", i, value)
		}
		prev = value
	}
	if math.Abs(smoother.Value() - 1) > 1e-9 {
		t.Fatalf("expected smoother to reach 1 but got %f", smoother.Value())
	}
}

func TestSmootherWindowOne(t *testing.T) {
	smoother := NewSmoother(1, 5)
	if smoother.Next(-3) != -3 {
		t.Fatal("window 1 smoother must jump to the target")
	}
}

func TestRingBufferDelay(t *testing.T) {
	ring := NewRingBuffer(3)
	expect := []float64{ 0, 0, 0, 1, 2, 3, 4 }
	for i, want := range expect {
		got := ring.Push(float64(i + 1))
		if got != want {
			t.Fatalf("push %d expected delayed %f but got %f", i, want, got)
		}
	}
	if ring.At(0) != 7 || ring.At(2) != 5 {
		t.Fatalf("unexpected At values: %f %f", ring.At(0), ring.At(2))
	}

	ordered := make([]float64, 3)
	ring.CopyTo(ordered)
	if ordered[0] != 5 || ordered[1] != 6 || ordered[2] != 7 {
		t.Fatalf("CopyTo expected [5 6 7] but got %v", ordered)
	}

	ring.Reset()
	if ring.Push(1) != 0 { t.Fatal("Reset must clear stored values") }
}
