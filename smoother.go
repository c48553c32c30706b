package vinyl

// A Smoother is a single-pole exponential smoother. Each call to
// [Smoother.Next] moves the current value 1/window of the way towards the
// given target, so larger windows produce slower and softer transitions.
//
// Smoothers are used all around to avoid clicks when parameters or
// envelopes change abruptly.
type Smoother struct {
	window float64
	value float64
}

// Creates a new smoother with the given window length (in steps) and
// initial value. Panics if window < 1.
func NewSmoother(window float64, initial float64) Smoother {
	if window < 1 { panic("NewSmoother window must be at least 1") }
	return Smoother{ window: window, value: initial }
}

// Advances the smoother one step towards target and returns the new value.
func (self *Smoother) Next(target float64) float64 {
	self.value += (target - self.value)/self.window
	return self.value
}

// Returns the current value without advancing.
func (self *Smoother) Value() float64 { return self.value }

// Jumps directly to the given value.
func (self *Smoother) Reset(value float64) { self.value = value }

