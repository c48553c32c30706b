package vinyl

import "math"
import "testing"

// Feeds a quadrature tone of the given frequency to the processor. The
// right channel leads the left one when forward is true.
func feedTone(processor *SpeedProcessor, freq float64, amplitude float64, samples int, forward bool, phase *float64) {
	step := 2*math.Pi*freq/44100.0
	for i := 0; i < samples; i++ {
		sin, cos := math.Sin(*phase)*amplitude, math.Cos(*phase)*amplitude
		if forward {
			processor.Process(sin, cos)
		} else {
			processor.Process(cos, sin)
		}
		*phase += step
	}
}

func TestSpeedDirection(t *testing.T) {
	phase := 0.0
	processor := NewDefaultSpeedProcessor()
	feedTone(processor, 1000, 0.5, 44100/4, true, &phase)
	if processor.Direction() != 1 {
		t.Fatalf("expected forward direction but got %v", processor.Direction())
	}

	feedTone(processor, 1000, 0.5, 44100/4, false, &phase)
	if processor.Direction() != -1 {
		t.Fatalf("expected reverse direction after swapping channels but got %v", processor.Direction())
	}
	if processor.RealSpeed() > -0.9 || processor.RealSpeed() < -1.1 {
		t.Fatalf("expected speed around -1 but got %v", processor.RealSpeed())
	}

	feedTone(processor, 1000, 0.5, 44100/4, true, &phase)
	if processor.Direction() != 1 {
		t.Fatalf("expected forward direction again but got %v", processor.Direction())
	}
}

func TestSpeedDefaultTimecode(t *testing.T) {
	phase := 0.0
	processor := NewDefaultSpeedProcessor()
	feedTone(processor, 1000, 0.5, 44100/2, true, &phase)
	if math.Abs(processor.RealSpeed() - 1) > 0.05 {
		t.Fatalf("expected speed 1 on a 1kHz tone but got %v", processor.RealSpeed())
	}
	if processor.Volume() < 0.9 || processor.Volume() > 1.1 {
		t.Fatalf("expected volume around 1 but got %v", processor.Volume())
	}
}

func TestSpeedLearn(t *testing.T) {
	phase := 0.0
	processor := NewDefaultSpeedProcessor()
	processor.StartLearn()
	if !processor.IsLearning() { t.Fatal("expected processor to be learning") }

	feedTone(processor, 1500, 0.5, HopSize*DefaultLearnHops, true, &phase)
	if processor.IsLearning() { t.Fatal("expected learning to be over") }
	if processor.RealSpeed() != 1 { t.Fatalf("expected speed 1 while learning but got %v", processor.RealSpeed()) }
	expected := 1500.0*SpectrumSize/44100.0
	if math.Abs(processor.Timecode() - expected) > 0.1 {
		t.Fatalf("expected learned timecode around %v but got %v", expected, processor.Timecode())
	}

	feedTone(processor, 3000, 0.5, HopSize*30, true, &phase)
	if math.Abs(processor.RealSpeed() - 2) > 0.1 {
		t.Fatalf("expected speed around 2 but got %v", processor.RealSpeed())
	}
}

func TestSpeedSignalLoss(t *testing.T) {
	phase := 0.0
	processor := NewDefaultSpeedProcessor()
	feedTone(processor, 1000, 0.5, 44100/4, true, &phase)
	if processor.RealSpeed() < 0.9 { t.Fatalf("expected speed near 1 but got %v", processor.RealSpeed()) }

	for i := 0; i < HopSize*100; i++ { processor.Process(0, 0) }
	if math.Abs(processor.RealSpeed()) > 0.01 {
		t.Fatalf("expected speed to decay to zero without signal but got %v", processor.RealSpeed())
	}
	if processor.Volume() > 0.05 {
		t.Fatalf("expected volume to fade out but got %v", processor.Volume())
	}
}

func TestSpeedLearnWaitsForSignal(t *testing.T) {
	processor := NewSpeedProcessor(4, DefaultAmplitudeFloor)
	processor.StartLearn()
	for i := 0; i < HopSize*10; i++ { processor.Process(0, 0) }
	if !processor.IsLearning() { t.Fatal("silent hops must not count towards learning") }
	if processor.RealSpeed() != 1 {
		t.Fatalf("expected speed 1 while learning without signal but got %v", processor.RealSpeed())
	}
	if processor.Timecode() != DefaultTimecode {
		t.Fatalf("silence changed the timecode to %v", processor.Timecode())
	}
}

func TestSpeedHopDoesNotAllocate(t *testing.T) {
	processor := NewDefaultSpeedProcessor()
	left, right := make([]float64, HopSize), make([]float64, HopSize)
	step := 2*math.Pi*1000/44100.0
	for i := range left {
		left[i], right[i] = math.Sin(float64(i)*step)*0.5, math.Cos(float64(i)*step)*0.5
	}
	hop := func() {
		for i := range left { processor.Process(left[i], right[i]) }
	}
	for i := 0; i < 8; i++ { hop() } // fill the window so every hop analyzes

	allocs := testing.AllocsPerRun(50, hop)
	if allocs != 0 { t.Fatalf("expected no allocations per hop but got %v", allocs) }
	if processor.RealSpeed() == 0 { t.Fatal("expected the hops to run the spectral analysis") }
}

func TestSpeedProbe(t *testing.T) {
	phase := 0.0
	processor := NewDefaultSpeedProcessor()
	calls := 0
	step := 2*math.Pi*1000/44100.0
	for i := 0; i < HopSize*5; i++ {
		processor.ProcessProbe(math.Sin(phase), math.Cos(phase), func(window, magnitudes []float64) {
			calls += 1
			if len(window) != SpectrumSize { t.Fatalf("expected window of %d samples, got %d", SpectrumSize, len(window)) }
			if len(magnitudes) != SpectrumSize/2 + 1 { t.Fatalf("unexpected spectrum size %d", len(magnitudes)) }
		})
		phase += step
	}
	if calls != 5 { t.Fatalf("expected 5 probe calls but got %d", calls) }
}

func TestSpeedResetKeepsTimecode(t *testing.T) {
	phase := 0.0
	processor := NewDefaultSpeedProcessor()
	processor.SetTimecode(20)
	processor.SetTimecode(-1)
	feedTone(processor, 1000, 0.5, 44100/4, false, &phase)
	processor.Reset()
	if processor.Timecode() != 20 { t.Fatalf("expected timecode 20 but got %v", processor.Timecode()) }
	if processor.RealSpeed() != 0 || processor.Direction() != 1 || processor.Volume() != 0 {
		t.Fatalf("reset left state behind: speed %v, direction %v, volume %v",
			processor.RealSpeed(), processor.Direction(), processor.Volume())
	}
}

func TestPeakBin(t *testing.T) {
	magnitudes := make([]float64, 32)
	magnitudes[10] = 1
	if bin := peakBin(magnitudes); bin != 10 {
		t.Fatalf("expected isolated peak at 10 but got %v", bin)
	}
	magnitudes[11] = 1
	bin := peakBin(magnitudes)
	if math.Abs(bin - 10.5) > 1e-12 {
		t.Fatalf("expected balanced peak at 10.5 but got %v", bin)
	}
}

func BenchmarkSpeedProcessor(b *testing.B) {
	processor := NewDefaultSpeedProcessor()
	step := 2*math.Pi*1000/44100.0
	phase := 0.0
	for i := 0; i < b.N; i++ {
		processor.Process(math.Sin(phase), math.Cos(phase))
		phase += step
	}
}
