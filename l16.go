package vinyl

// Size in bytes of a L16 stereo frame, the format of Ebitengine audio
// streams: two little-endian signed 16 bit samples, left first.
const L16FrameSize = 4

// Reads the L16 frame at the start of the given slice as raw integer
// samples. Panics if len(frame) < L16FrameSize.
func DecodeL16(frame []byte) (int16, int16) {
	left  := int16(uint16(frame[1]) << 8 | uint16(frame[0]))
	right := int16(uint16(frame[3]) << 8 | uint16(frame[2]))
	return left, right
}

// Writes the given samples as a L16 frame at the start of the given slice.
// Panics if len(frame) < L16FrameSize.
func EncodeL16(frame []byte, left, right int16) {
	frame[0] = byte(left)
	frame[1] = byte(left  >> 8)
	frame[2] = byte(right)
	frame[3] = byte(right >> 8)
}

// Like [DecodeL16], but the samples are normalized to [-1, 1].
func DecodeL16Float(frame []byte) (float64, float64) {
	left, right := DecodeL16(frame)
	return l16ToFloat(left), l16ToFloat(right)
}

// Like [EncodeL16], but for normalized samples. Values outside [-1, 1]
// are clipped.
func EncodeL16Float(frame []byte, left, right float64) {
	EncodeL16(frame, floatToL16(left), floatToL16(right))
}

// Encodes as many frames from the given channels as fit in dst and
// returns the number of frames written.
func EncodeL16Block(dst []byte, left, right []float64) int {
	frames := len(dst)/L16FrameSize
	if len(left)  < frames { frames = len(left)  }
	if len(right) < frames { frames = len(right) }
	for i := 0; i < frames; i++ {
		EncodeL16Float(dst[i*L16FrameSize : ], left[i], right[i])
	}
	return frames
}

// positive and negative ranges are scaled separately so that both
// -1 and 1 are reachable
func floatToL16(value float64) int16 {
	if value >=  1.0 { return  32767 }
	if value <= -1.0 { return -32768 }
	if value >= 0 { return int16(value*32767.0) }
	return int16(value*32768.0)
}

func l16ToFloat(value int16) float64 {
	if value >= 0 { return float64(value)/32767.0 }
	return float64(value)/32768.0
}
