package vinyl

import "math"

// A CuePoint is a fractional read position into a waveform: an integer
// sample index plus a sub-sample fraction that always stays in [0, 1).
//
// CuePoints are plain values. All the arithmetic methods return new values
// instead of modifying the receiver.
type CuePoint struct {
	Index int64
	Frac  float64
}

// Creates a CuePoint from a floating point position. Negative positions
// are valid and keep the fraction positive (e.g. -0.25 => {-1, 0.75}).
func CueAt(position float64) CuePoint {
	whole := math.Floor(position)
	return CuePoint{ Index: int64(whole), Frac: position - whole }.renormalized()
}

// Returns the position as a single float64. Precision degrades for
// very large indices, so prefer the CuePoint methods for arithmetic.
func (self CuePoint) Float() float64 {
	return float64(self.Index) + self.Frac
}

// Returns the cue point advanced by the given offset (in samples). Any
// overflow or underflow of the fractional part carries into the index.
func (self CuePoint) Add(offset float64) CuePoint {
	frac := self.Frac + offset
	whole := math.Floor(frac)
	return CuePoint{ Index: self.Index + int64(whole), Frac: frac - whole }.renormalized()
}

// Same as Add(-offset).
func (self CuePoint) Sub(offset float64) CuePoint {
	return self.Add(-offset)
}

// Returns -1, 0 or 1 depending on whether the receiver comes before, at
// the same position or after the given cue point. Ordering is by index
// first and fraction second.
func (self CuePoint) Compare(other CuePoint) int {
	switch {
	case self.Index < other.Index: return -1
	case self.Index > other.Index: return  1
	case self.Frac  < other.Frac : return -1
	case self.Frac  > other.Frac : return  1
	default:
		return 0
	}
}

func (self CuePoint) Less(other CuePoint) bool { return self.Compare(other) < 0 }

// Returns self - other in samples. When loop is true and length > 0, the
// shortest signed distance around the loop is returned instead, so the
// result always falls in [-length/2, length/2].
func (self CuePoint) Distance(other CuePoint, length int64, loop bool) float64 {
	dist := float64(self.Index - other.Index) + (self.Frac - other.Frac)
	if !loop || length <= 0 { return dist }
	span := float64(length)
	dist = math.Mod(dist, span)
	if dist >  span/2 { dist -= span }
	if dist < -span/2 { dist += span }
	return dist
}

// Brings the cue point back inside a buffer of the given length.
//
// With loop set, the index is wrapped modulo length. Otherwise the index
// is clamped to [0, length - 1] and the fraction is dropped if the clamp
// had to be applied, so a one-shot sample holds at its boundary samples.
// The last sample has nothing to interpolate towards, so a cue point on it
// always loses its fraction.
// A non-positive length yields the zero cue point.
func (self CuePoint) Normalize(length int64, loop bool) CuePoint {
	if length <= 0 { return CuePoint{} }
	if loop {
		index := self.Index % length
		if index < 0 { index += length }
		return CuePoint{ Index: index, Frac: self.Frac }
	}

	if self.Index < 0 { return CuePoint{} }
	if self.Index >= length - 1 { return CuePoint{ Index: length - 1 } }
	return self
}

// floating point rounding can leave the fraction at exactly 1.0 (e.g.
// Floor(-1e-17) == -1, and -1e-17 - -1 == 1.0), so this fixes the carry
func (self CuePoint) renormalized() CuePoint {
	if self.Frac >= 1.0 {
		self.Index += 1
		self.Frac = 0
	} else if self.Frac < 0 {
		self.Frac = 0
	}
	return self
}
