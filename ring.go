package vinyl

// A RingBuffer is a fixed capacity circular delay line. Pushing a value
// returns the value that was pushed capacity steps earlier (zero until the
// buffer has been filled once).
type RingBuffer struct {
	buffer []float64
	index int
}

// Creates a new ring buffer. Panics if capacity < 1.
func NewRingBuffer(capacity int) RingBuffer {
	if capacity < 1 { panic("NewRingBuffer capacity must be at least 1") }
	return RingBuffer{ buffer: make([]float64, capacity) }
}

// Stores value and returns the delayed value it replaces.
func (self *RingBuffer) Push(value float64) float64 {
	delayed := self.buffer[self.index]
	self.buffer[self.index] = value
	self.index += 1
	if self.index == len(self.buffer) { self.index = 0 }
	return delayed
}

// Returns the value stored n steps ago, with n = 0 being the most recent
// push. n must be in [0, capacity).
func (self *RingBuffer) At(n int) float64 {
	i := self.index - 1 - n
	for i < 0 { i += len(self.buffer) }
	return self.buffer[i]
}

// Copies the buffer contents into dst from oldest to newest. dst must
// have the same length as the ring buffer capacity.
func (self *RingBuffer) CopyTo(dst []float64) {
	n := copy(dst, self.buffer[self.index : ])
	copy(dst[n : ], self.buffer[ : self.index])
}

func (self *RingBuffer) Len() int { return len(self.buffer) }

// Zeroes all stored values.
func (self *RingBuffer) Reset() {
	for i := range self.buffer { self.buffer[i] = 0 }
	self.index = 0
}
