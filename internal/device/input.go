package device

import "time"

// Input is one sample of both buttons, already in logical form.
type Input struct {
	Start bool // true = pressed
	Stop  bool
	Time  time.Time
}

// button tracks debounce state for a single button.
type button struct {
	// Current stable (debounced) state
	stable bool
	// Pending state during debounce
	pending bool
	// Time when pending state was first observed
	pendingSince time.Time
}

// update feeds one raw sample and reports whether the stable state changed.
func (b *button) update(pressed bool, now time.Time, debounce time.Duration) bool {
	if pressed == b.stable {
		b.pending = pressed
		return false
	}
	if pressed != b.pending {
		b.pending = pressed
		b.pendingSince = now
	}
	if now.Sub(b.pendingSince) >= debounce {
		b.stable = pressed
		return true
	}
	return false
}

// InputDecoder turns button samples into events. Start fires once on the
// debounced press edge; Stop fires on every sample while the stop button is
// held. Both buttons are assumed released before the first sample.
type InputDecoder struct {
	debounce    time.Duration
	start, stop button
}

// NewInputDecoder creates a decoder. A zero debounce accepts every change
// immediately.
func NewInputDecoder(debounce time.Duration) *InputDecoder {
	return &InputDecoder{debounce: debounce}
}

// Decode returns at most one event for the sample. Stop wins over start, and
// a start press made while stop is held is consumed: it does not fire once
// stop is released, the button must be pressed again.
func (d *InputDecoder) Decode(in Input) Event {
	startChanged := d.start.update(in.Start, in.Time, d.debounce)
	d.stop.update(in.Stop, in.Time, d.debounce)

	if d.stop.stable {
		return EventStop
	}
	if startChanged && d.start.stable {
		return EventStart
	}
	return EventNone
}
