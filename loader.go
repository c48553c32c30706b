package vinyl

import "os"
import "io"
import "fmt"
import "math"
import "errors"
import "strings"
import "path/filepath"

import "github.com/go-audio/audio"
import "github.com/go-audio/wav"
import "github.com/hajimehoshi/ebiten/v2/audio/mp3"
import "github.com/hajimehoshi/ebiten/v2/audio/vorbis"
import "github.com/sirupsen/logrus"

// Returned when trying to load a file whose extension or encoding is not
// supported (only .wav, .mp3 and .ogg files with one or two channels are).
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Returned when a decoded waveform has less than [MinWaveformSamples] samples.
var ErrShortWaveform = errors.New("waveform too short to be played")

// Loads an .ogg, .mp3 or .wav file as a [WaveformBuffer].
//
// WAV files keep their native sample rate, so the buffer will resample on
// playback. MP3 and Ogg Vorbis files are decoded directly at the given host
// sample rate. beatsPerLoop can be 0 if unknown.
//
// On failure, no buffer is returned.
func LoadWaveform(filename string, sampleRate int, beatsPerLoop int) (*WaveformBuffer, error) {
	file, err := os.Open(filename)
	if err != nil { return nil, err }
	defer file.Close()

	var buffer *WaveformBuffer
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		buffer, err = DecodeWav(file)
	case ".mp3":
		var stream *mp3.Stream
		stream, err = mp3.DecodeWithSampleRate(sampleRate, file)
		if err == nil { buffer, err = WaveformFromL16(stream, sampleRate) }
	case ".ogg":
		var stream *vorbis.Stream
		stream, err = vorbis.DecodeWithSampleRate(sampleRate, file)
		if err == nil { buffer, err = WaveformFromL16(stream, sampleRate) }
	default:
		err = fmt.Errorf("%w: unexpected extension for '%s'", ErrUnsupportedFormat, filename)
	}

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"file": filename,
			"error": err,
		}).Error("failed to load waveform")
		return nil, err
	}

	buffer.SetBeatsPerLoop(beatsPerLoop)
	logrus.WithFields(logrus.Fields{
		"file": filename,
		"samples": buffer.Len(),
		"sample_rate": buffer.SampleRate(),
		"beats": beatsPerLoop,
	}).Info("waveform loaded")
	return buffer, nil
}

// Reads a whole L16 little-endian stereo stream (Ebitengine's audio format)
// into a new [WaveformBuffer] with the given sample rate.
func WaveformFromL16(stream io.Reader, sampleRate int) (*WaveformBuffer, error) {
	data, err := io.ReadAll(stream)
	if err != nil { return nil, err }

	frames := len(data)/L16FrameSize
	if frames < MinWaveformSamples { return nil, ErrShortWaveform }
	left  := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i], right[i] = DecodeL16Float(data[i*L16FrameSize : ])
	}
	return NewWaveformBuffer(left, right, sampleRate), nil
}

// Decodes a mono or stereo PCM WAV stream into a new [WaveformBuffer] at
// the file's native sample rate.
func DecodeWav(stream io.ReadSeeker) (*WaveformBuffer, error) {
	decoder := wav.NewDecoder(stream)
	if !decoder.IsValidFile() { return nil, fmt.Errorf("%w: invalid wav file", ErrUnsupportedFormat) }
	pcm, err := decoder.FullPCMBuffer()
	if err != nil { return nil, err }

	channels := int(decoder.NumChans)
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d bit samples", ErrUnsupportedFormat, bitDepth)
	}

	frames := len(pcm.Data)/channels
	if frames < MinWaveformSamples { return nil, ErrShortWaveform }
	scale := math.Ldexp(1, bitDepth - 1)
	offset := 0.0
	if bitDepth == 8 { offset = scale } // 8 bit wavs are unsigned

	left := make([]float64, frames)
	right := left
	if channels == 2 { right = make([]float64, frames) }
	for i := 0; i < frames; i++ {
		left[i] = (float64(pcm.Data[i*channels]) - offset)/scale
		if channels == 2 {
			right[i] = (float64(pcm.Data[i*channels + 1]) - offset)/scale
		}
	}
	return NewWaveformBuffer(left, right, int(decoder.SampleRate)), nil
}

// Writes the given channels as a 16 bit stereo PCM WAV stream.
func EncodeWav(stream io.WriteSeeker, left, right []float64, sampleRate int) error {
	if len(left) != len(right) { panic("EncodeWav channels must have the same length") }
	encoder := wav.NewEncoder(stream, sampleRate, 16, 2, 1)
	pcm := &audio.IntBuffer {
		Format: &audio.Format{ NumChannels: 2, SampleRate: sampleRate },
		Data: make([]int, len(left)*2),
		SourceBitDepth: 16,
	}
	for i := range left {
		pcm.Data[i*2]     = int(floatToL16(left[i]))
		pcm.Data[i*2 + 1] = int(floatToL16(right[i]))
	}
	if err := encoder.Write(pcm); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

// Returns a power of two beat count that best matches the duration of a
// waveform with the given length at the given tempo, or 0 if the tempo or
// the length are not positive. Useful for loops without tempo metadata.
func GuessBeatsPerLoop(length int, sampleRate int, tempo float64) int {
	if length <= 0 || sampleRate <= 0 || tempo <= 0 { return 0 }
	beats := float64(length)/float64(sampleRate)*tempo/60.0
	if beats < 1 { return 1 }
	return 1 << int(math.Round(math.Log2(beats)))
}
