package vinyl

import "sync"
import "errors"
import "sync/atomic"

import "github.com/sirupsen/logrus"

// Number of waveform slots kept by an [Arena].
const ArenaSlots = 4

// Returned by [Arena.Publish] when every slot is either current or still
// potentially in use by the audio side.
var ErrArenaFull = errors.New("no waveform slot available, the audio side hasn't released the previous ones yet")

// An Arena hands fully built waveform buffers over to the audio thread.
//
// Buffers live in a fixed set of slots. The current slot index and a
// publication epoch are packed in a single atomic value, so the audio side
// sees either the old buffer or the new one, never something in between.
// A replaced slot is only reused once the audio side has acquired a newer
// epoch, which guarantees it no longer references the old buffer.
//
// Publish may be called from any goroutine. Acquire must only be called
// from the audio side, once per processing block.
type Arena struct {
	mutex sync.Mutex // serializes publishers
	slots [ArenaSlots]atomic.Pointer[WaveformBuffer]
	retiredAt [ArenaSlots]uint64 // guarded by mutex
	state atomic.Uint64 // epoch << 8 | (slot + 1), zero until first publish
	seen atomic.Uint64 // last epoch acquired by the audio side
}

func NewArena() *Arena { return &Arena{} }

// Makes the given buffer the current one. Returns the slot it was stored
// in, or [ErrArenaFull] if no slot can be safely reused yet.
func (self *Arena) Publish(buffer *WaveformBuffer) (int, error) {
	if buffer == nil { panic("Arena.Publish buffer can't be nil") }

	self.mutex.Lock()
	defer self.mutex.Unlock()

	state := self.state.Load()
	current := int(state & 0xFF) - 1
	epoch := state >> 8
	seen := self.seen.Load()

	slot := -1
	for i := 0; i < ArenaSlots; i++ {
		if i == current { continue }
		if self.slots[i].Load() == nil || seen >= self.retiredAt[i] {
			slot = i
			break
		}
	}
	if slot == -1 {
		logrus.WithFields(logrus.Fields{
			"epoch": epoch,
			"seen": seen,
		}).Warn("waveform arena full")
		return -1, ErrArenaFull
	}

	epoch += 1
	self.slots[slot].Store(buffer)
	self.state.Store(epoch << 8 | uint64(slot + 1))
	if current >= 0 { self.retiredAt[current] = epoch }

	logrus.WithFields(logrus.Fields{
		"slot": slot,
		"epoch": epoch,
		"samples": buffer.Len(),
		"sample_rate": buffer.SampleRate(),
	}).Debug("waveform published")
	return slot, nil
}

// Returns the current buffer and records that the audio side has seen the
// current epoch. Any buffer returned by a previous Acquire call must not be
// used after this. Returns nil if nothing has been published yet.
func (self *Arena) Acquire() *WaveformBuffer {
	state := self.state.Load()
	if state == 0 { return nil }
	self.seen.Store(state >> 8)
	return self.slots[(state & 0xFF) - 1].Load()
}

// Returns the current buffer without marking it as acquired. Only the
// immutable parts of the buffer (samples, sample rate) may be read from
// outside the audio side.
func (self *Arena) Current() *WaveformBuffer {
	state := self.state.Load()
	if state == 0 { return nil }
	return self.slots[(state & 0xFF) - 1].Load()
}

// Returns the number of publications so far.
func (self *Arena) Epoch() uint64 { return self.state.Load() >> 8 }
