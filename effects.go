package vinyl

import "math"
import "sync/atomic"

// The transport values that drive a render: requested speed, host tempo
// in beats per minute and host sample rate.
type Transport struct {
	Speed float64
	Tempo float64
	SampleRate int
}

// Converts a fraction of a beat to a number of host samples.
func (self Transport) noteSamples(buffer *WaveformBuffer, fraction float64) float64 {
	return buffer.NoteLength(fraction, self.Tempo).Seconds()*float64(self.SampleRate)
}

type EffectKind uint8
const (
	// Slows the record down to a stop, like cutting the turntable motor.
	// Amount is the smoothing window in samples.
	EffectBrake EffectKind = iota

	// Keeps jumping back to the cue point where it was engaged every
	// Fraction of a beat (beat repeat).
	EffectHold

	// Mixes in the audio from Fraction of a beat behind the cursor at
	// Amount gain. It peeks without moving the cursor.
	EffectPreRoll

	// Soft clipping with Amount drive.
	EffectDistortion
)

func (self EffectKind) String() string {
	switch self {
	case EffectBrake: return "brake"
	case EffectHold: return "hold"
	case EffectPreRoll: return "pre-roll"
	case EffectDistortion: return "distortion"
	default:
		return "unknown"
	}
}

// An Effect is one entry of an [EffectChain]. The kind selects which of
// the private state structs is used.
//
// Engage and Release can be called from any goroutine, everything else
// happens on the audio side.
type Effect struct {
	Kind EffectKind
	Fraction float64
	Amount float64

	engaged atomic.Bool
	brake brakeState
	hold holdState
}

type brakeState struct {
	speed Smoother
	active bool
}

type holdState struct {
	cue CuePoint
	elapsed float64
	active bool
}

// Creates a new effect of the given kind with default parameters.
func NewEffect(kind EffectKind) *Effect {
	effect := &Effect{ Kind: kind }
	switch kind {
	case EffectBrake:
		effect.Amount = 8000
	case EffectHold:
		effect.Fraction = 0.25
	case EffectPreRoll:
		effect.Fraction = 0.5
		effect.Amount = 0.5
	case EffectDistortion:
		effect.Amount = 4
	default:
		panic("NewEffect unknown effect kind")
	}
	return effect
}

func (self *Effect) Engage() { self.engaged.Store(true) }
func (self *Effect) Release() { self.engaged.Store(false) }
func (self *Effect) Engaged() bool { return self.engaged.Load() }

// Toggles the effect and returns whether it is engaged afterwards.
func (self *Effect) Toggle() bool {
	for {
		old := self.engaged.Load()
		if self.engaged.CompareAndSwap(old, !old) { return !old }
	}
}

// An EffectChain renders a waveform through a list of effects. Effects act
// in two stages: before the waveform is played (modifying the transport or
// the cue point) and after (processing the output).
type EffectChain struct {
	effects []*Effect
}

func NewEffectChain(effects ...*Effect) *EffectChain {
	return &EffectChain{ effects: effects }
}

// Returns the effect at the given position.
func (self *EffectChain) Effect(i int) *Effect { return self.effects[i] }
func (self *EffectChain) Len() int { return len(self.effects) }

// Plays one stereo sample from the buffer with the given transport,
// applying all the effects in the chain.
func (self *EffectChain) Render(buffer *WaveformBuffer, transport Transport) (float64, float64) {
	for _, effect := range self.effects {
		transport = effect.before(buffer, transport)
	}
	left, right := buffer.PlayStereoSample(transport.Speed, transport.Tempo, transport.SampleRate, true)
	for _, effect := range self.effects {
		left, right = effect.after(buffer, transport, left, right)
	}
	return left, right
}

func (self *Effect) before(buffer *WaveformBuffer, transport Transport) Transport {
	engaged := self.engaged.Load()
	switch self.Kind {
	case EffectBrake:
		if !engaged {
			self.brake.active = false
			return transport
		}
		if !self.brake.active {
			self.brake.speed = NewSmoother(math.Max(self.Amount, 1), transport.Speed)
			self.brake.active = true
		}
		transport.Speed = self.brake.speed.Next(0)
	case EffectHold:
		if !engaged {
			self.hold.active = false
			return transport
		}
		if !self.hold.active {
			self.hold = holdState{ cue: buffer.Cue(), active: true }
		}
		self.hold.elapsed += 1
		length := transport.noteSamples(buffer, self.Fraction)
		if length >= 1 && self.hold.elapsed >= length {
			buffer.SetCue(self.hold.cue)
			self.hold.elapsed = 0
		}
	case EffectPreRoll, EffectDistortion:
		// output stage only
	default:
		panic("unknown effect kind")
	}
	return transport
}

func (self *Effect) after(buffer *WaveformBuffer, transport Transport, left, right float64) (float64, float64) {
	if !self.engaged.Load() { return left, right }
	switch self.Kind {
	case EffectBrake, EffectHold:
		// transport stage only
	case EffectPreRoll:
		hostRate := transport.SampleRate
		if hostRate <= 0 { hostRate = buffer.SampleRate() }
		behind := transport.noteSamples(buffer, self.Fraction)*float64(buffer.SampleRate())/float64(hostRate)
		echoLeft, echoRight := buffer.RenderAt(buffer.Cue().Sub(behind*buffer.direction()))
		left  += echoLeft*self.Amount
		right += echoRight*self.Amount
	case EffectDistortion:
		drive := math.Max(self.Amount, 1e-3)
		norm := math.Tanh(drive)
		left  = math.Tanh(left*drive)/norm
		right = math.Tanh(right*drive)/norm
	default:
		panic("unknown effect kind")
	}
	return left, right
}
