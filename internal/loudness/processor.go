package loudness

import (
	"math"
	"time"
)

// Power returns the root-mean-square of the samples in converter-code units.
// An empty slice has zero power.
func Power(samples []uint16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// ToVoltage maps a converter-code RMS into a voltage folded around the
// front end's mid-rail bias: |2 * (power * Vfs / 2^bits - offset)|.
func ToVoltage(power float64) float64 {
	v := power*FullScaleVolts/float64(int(1)<<ConverterBits) - OffsetVolts
	return math.Abs(2 * v)
}

// ToDecibels converts a voltage to dB against ReferenceVolts.
// Non-positive or non-finite input returns SilenceDB.
func ToDecibels(voltage float64) float64 {
	if !(voltage > 0) || math.IsInf(voltage, 0) {
		return SilenceDB
	}
	return 20 * math.Log10(voltage/ReferenceVolts)
}

// Classify assigns the loudness band for db.
func Classify(db float64) Class {
	switch {
	case db < BreakLow:
		return VeryLow
	case db < BreakModerate:
		return Low
	case db < BreakHigh:
		return Moderate
	case db < BreakVeryHigh:
		return High
	case db < BreakExtreme:
		return VeryHigh
	default:
		return Extreme
	}
}

// FilterWindow is a fixed-size moving-average filter.
// Slots that were never written count as zero in the mean.
type FilterWindow struct {
	slots [FilterWindowSize]float64
	next  int
}

// Smooth stores v in the window and returns the mean of all slots.
func (w *FilterWindow) Smooth(v float64) float64 {
	w.slots[w.next] = v
	w.next = (w.next + 1) % len(w.slots)

	var sum float64
	for _, s := range w.slots {
		sum += s
	}
	return sum / float64(len(w.slots))
}

// Processor runs the full pipeline and owns the filter state for the
// lifetime of the process.
type Processor struct {
	window FilterWindow
}

// NewProcessor creates a Processor with an empty filter window.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process computes the reading for one burst taken at now.
func (p *Processor) Process(samples []uint16, now time.Time) Reading {
	raw := Power(samples)
	filtered := p.window.Smooth(ToVoltage(raw))
	db := ToDecibels(filtered)
	return Reading{
		Time:          now,
		RawPower:      raw,
		FilteredPower: filtered,
		Decibels:      db,
		Class:         Classify(db),
	}
}
