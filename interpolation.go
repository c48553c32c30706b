package vinyl

// Credit to Olli's paper (http://yehar.com/blog/wp-content/uploads/2009/08/deip.pdf),
// the hermite polynomial follows that paper.

// 4-point, 3rd-order Hermite interpolation between y1 and y2. y0 and y3 are
// the outer neighbours and x is the position in [0, 1) relative to y1.
//
// The evaluation order is fixed: renders must be bit-reproducible for the
// same samples and fraction.
func Hermite4(y0, y1, y2, y3 float64, x float64) float64 {
	c0 := y1
	c1 := 0.5*(y2 - y0)
	c2 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c3 := 1.5*(y1 - y2) + 0.5*(y3 - y0)
	return ((c3*x + c2)*x + c1)*x + c0
}

// Returns the hermite interpolation of samples around the given cue point.
// Taps at index-1 and index+2 that fall outside the slice are taken as zero.
// The caller must ensure cue.Index is inside the slice.
func interpolateAt(samples []float64, cue CuePoint) float64 {
	index := int(cue.Index)
	var y0, y2, y3 float64
	y1 := samples[index]
	if index > 0 { y0 = samples[index - 1] }
	if index + 1 < len(samples) { y2 = samples[index + 1] }
	if index + 2 < len(samples) { y3 = samples[index + 2] }
	return Hermite4(y0, y1, y2, y3, cue.Frac)
}
