package vinyl

import "math"
import "math/bits"
import "math/cmplx"

import "github.com/mjibson/go-dsp/window"
import "gonum.org/v1/gonum/dsp/fourier"

const (
	// Size of the spectral analysis window, in samples.
	SpectrumSize = 512

	// Number of input samples between two spectral analyses.
	HopSize = 128

	// Spectral peak bin that corresponds to normal speed before any
	// learning happened: a 1kHz control tone at 44.1kHz.
	DefaultTimecode = 1000.0*SpectrumSize/44100.0

	// Default number of hops used to learn the timecode coefficient.
	DefaultLearnHops = 64

	// Default amplitude under which the control signal is considered lost.
	DefaultAmplitudeFloor = 0.01
)

const (
	directionMinStable = 3 // samples between edges for them to count
	speedDecay = 0.8 // per hop, while the control signal is lost
	carrierFastWindow = 2
	carrierLowWindow = 32
	carrierDelay = 1
	amplitudeWindow = 256
	timecodeWindow = 8 // in hops
	volumeWindow = 4 // in hops
)

// A SpeedProcessor decodes the playback direction and speed from a stereo
// control tone, like the ones pressed into timecode vinyl records.
//
// Direction comes from the phase relationship between both channels:
// the right channel leading the left one by a quarter cycle means forward
// playback. Speed comes from the frequency of the tone, estimated on a
// sliding spectrum and divided by a learned timecode coefficient (the
// spectral bin seen at normal speed).
//
// A SpeedProcessor is not safe for concurrent use.
type SpeedProcessor struct {
	carriers [2]carrierFilter
	prevCarrier [2]float64
	states [2]uint8
	stable int
	history uint32
	direction float64

	window RingBuffer
	preWindow []float64
	windowed []float64
	magnitudes []float64
	hann []float64
	fft *fourier.FFT
	coefficients []complex128
	hopCounter int

	amplitude Smoother
	timecode Smoother
	volume Smoother
	speed float64
	learnCountdown int
	learnHops int
	amplitudeFloor float64
}

// Extracts the high frequency carrier from a raw channel. The low-pass is
// fed through a short delay so it lines up with the fast smoother output.
type carrierFilter struct {
	delay RingBuffer
	fast Smoother
	low Smoother
}

func newCarrierFilter() carrierFilter {
	return carrierFilter{
		delay: NewRingBuffer(carrierDelay),
		fast: NewSmoother(carrierFastWindow, 0),
		low: NewSmoother(carrierLowWindow, 0),
	}
}

func (self *carrierFilter) Process(sample float64) float64 {
	smooth := self.fast.Next(sample)
	low := self.low.Next(self.delay.Push(sample))
	return smooth - low
}

// Creates a SpeedProcessor with [DefaultLearnHops] and [DefaultAmplitudeFloor].
func NewDefaultSpeedProcessor() *SpeedProcessor {
	return NewSpeedProcessor(DefaultLearnHops, DefaultAmplitudeFloor)
}

// Creates a SpeedProcessor that learns the timecode during learnHops hops
// after [SpeedProcessor.StartLearn], and that ignores signals with a
// smoothed carrier amplitude under amplitudeFloor. Panics if learnHops < 1.
func NewSpeedProcessor(learnHops int, amplitudeFloor float64) *SpeedProcessor {
	if learnHops < 1 { panic("NewSpeedProcessor learnHops must be at least 1") }

	// everything the analysis needs is allocated here, hops don't allocate
	buffer := make([]float64, SpectrumSize*3)
	processor := &SpeedProcessor {
		window: NewRingBuffer(SpectrumSize),
		preWindow:  buffer[0 : SpectrumSize],
		windowed:   buffer[SpectrumSize : SpectrumSize*2],
		magnitudes: buffer[SpectrumSize*2 : SpectrumSize*2 + SpectrumSize/2 + 1],
		hann: window.Hann(SpectrumSize),
		fft: fourier.NewFFT(SpectrumSize),
		coefficients: make([]complex128, SpectrumSize/2 + 1),
		timecode: NewSmoother(timecodeWindow, DefaultTimecode),
		learnHops: learnHops,
		amplitudeFloor: amplitudeFloor,
	}
	processor.Reset()
	return processor
}

// Clears all the signal state. The learned timecode is kept.
func (self *SpeedProcessor) Reset() {
	self.carriers[0] = newCarrierFilter()
	self.carriers[1] = newCarrierFilter()
	self.prevCarrier = [2]float64{}
	self.states = [2]uint8{}
	self.stable = 0
	self.history = 0x55555555
	self.direction = 1
	self.window.Reset()
	self.hopCounter = 0
	self.amplitude = NewSmoother(amplitudeWindow, 0)
	self.volume = NewSmoother(volumeWindow, 0)
	self.speed = 0
	self.learnCountdown = 0
}

// Processes one stereo input sample.
func (self *SpeedProcessor) Process(left, right float64) {
	self.ProcessProbe(left, right, nil)
}

// Like [SpeedProcessor.Process], but every time a spectral analysis runs the
// probe function is called with the analysis window (before applying the
// window function) and the resulting magnitude spectrum. The slices are
// reused between calls. probe can be nil.
func (self *SpeedProcessor) ProcessProbe(left, right float64, probe func(window, magnitudes []float64)) {
	carrierLeft  := self.carriers[0].Process(left)
	carrierRight := self.carriers[1].Process(right)
	self.detectDirection(carrierLeft, carrierRight)

	diff := carrierLeft - carrierRight
	self.amplitude.Next(math.Abs(diff))
	self.window.Push(diff)

	self.hopCounter += 1
	if self.hopCounter < HopSize { return }
	self.hopCounter = 0
	self.analyze()
	if probe != nil { probe(self.preWindow, self.magnitudes) }
}

// Each channel keeps its last two slope changes in a state byte, one per
// nibble: 0x0F after the carrier starts rising, 0xF0 after it starts
// falling. When a channel changes, both state bytes are compared with the
// previous ones to see which channel is leading.
func (self *SpeedProcessor) detectDirection(carrierLeft, carrierRight float64) {
	prevLeft, prevRight := self.states[0], self.states[1]
	self.states[0] = nextEdgeState(prevLeft , carrierLeft  - self.prevCarrier[0])
	self.states[1] = nextEdgeState(prevRight, carrierRight - self.prevCarrier[1])
	self.prevCarrier[0], self.prevCarrier[1] = carrierLeft, carrierRight

	newLeft, newRight := self.states[0], self.states[1]
	if newLeft == prevLeft && newRight == prevRight {
		self.stable += 1
		return
	}

	if self.stable >= directionMinStable {
		if newLeft == prevRight && newRight == bits.Reverse8(prevLeft) {
			self.history = self.history << 1 | 1
		} else if newRight == prevLeft && newLeft == bits.Reverse8(prevRight) {
			self.history = self.history << 1
		}
		switch self.history {
		case 0xFFFFFFFF: self.direction =  1
		case 0x00000000: self.direction = -1
		}
	}
	self.stable = 0
}

func nextEdgeState(state uint8, delta float64) uint8 {
	if delta < 0 && state & 0x0F == 0x0F { return state << 4 }
	if delta > 0 && state & 0x0F == 0x00 { return state << 4 | 0x0F }
	return state
}

func (self *SpeedProcessor) analyze() {
	if self.amplitude.Value() < self.amplitudeFloor {
		if self.learnCountdown > 0 {
			self.speed = 1.0
		} else {
			self.speed *= speedDecay
		}
		self.volume.Next(math.Sqrt(math.Abs(self.speed)))
		return
	}

	self.window.CopyTo(self.preWindow)
	for i, sample := range self.preWindow {
		self.windowed[i] = sample*self.hann[i]
	}
	self.fft.Coefficients(self.coefficients, self.windowed)
	for i, coefficient := range self.coefficients {
		self.magnitudes[i] = cmplx.Abs(coefficient)
	}

	bin := peakBin(self.magnitudes)
	if self.learnCountdown > 0 {
		self.timecode.Next(bin)
		self.learnCountdown -= 1
		self.speed = 1.0
	} else if self.timecode.Value() > 0 {
		self.speed = bin/self.timecode.Value()*self.direction
	}
	self.volume.Next(math.Sqrt(math.Abs(self.speed)))
}

// Returns the fractional bin of the spectrum peak. The integer peak is
// pulled towards each direct neighbour with weight 1/(1 + (peak/neighbour)²).
// Learned timecodes depend on this exact estimate, so it must not change.
func peakBin(magnitudes []float64) float64 {
	peakIndex := 1
	for i := 2; i < len(magnitudes) - 1; i++ {
		if magnitudes[i] > magnitudes[peakIndex] { peakIndex = i }
	}

	peak := magnitudes[peakIndex]
	bin := float64(peakIndex)
	for _, neighbour := range [2]int{ peakIndex - 1, peakIndex + 1 } {
		magnitude := magnitudes[neighbour]
		if magnitude <= 0 { continue }
		ratio := peak/magnitude
		bin += (float64(neighbour) - bin)/(1 + ratio*ratio)
	}
	return bin
}

// Returns +1 for forward playback and -1 for backward playback.
func (self *SpeedProcessor) Direction() float64 { return self.direction }

// Returns the signed playback speed, 1.0 being normal speed. While
// learning, it's always 1.0.
func (self *SpeedProcessor) RealSpeed() float64 { return self.speed }

// Returns a smoothed gain in [0, ~1] that follows sqrt(|speed|), useful to
// fade the output when the record slows down.
func (self *SpeedProcessor) Volume() float64 { return self.volume.Value() }

// Returns the learned timecode coefficient.
func (self *SpeedProcessor) Timecode() float64 { return self.timecode.Value() }

// Sets the timecode coefficient directly, e.g. to restore a previously
// learned one. Non-positive values are ignored.
func (self *SpeedProcessor) SetTimecode(timecode float64) {
	if timecode > 0 { self.timecode.Reset(timecode) }
}

// Starts learning the timecode coefficient. The control record should be
// playing at normal speed during the next learn hops.
func (self *SpeedProcessor) StartLearn() { self.learnCountdown = self.learnHops }

func (self *SpeedProcessor) IsLearning() bool { return self.learnCountdown > 0 }
