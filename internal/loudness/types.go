// Package loudness turns raw microphone bursts into a calibrated loudness
// reading. This package has NO hardware or I/O dependencies; time is always
// passed in.
package loudness

import "time"

// Class is the loudness band assigned to a decibel value.
type Class string

const (
	VeryLow  Class = "VERY_LOW"
	Low      Class = "LOW"
	Moderate Class = "MODERATE"
	High     Class = "HIGH"
	VeryHigh Class = "VERY_HIGH"
	Extreme  Class = "EXTREME"
)

// Classes lists every band from quietest to loudest.
var Classes = []Class{VeryLow, Low, Moderate, High, VeryHigh, Extreme}

// Label returns the human-readable name shown on the display.
func (c Class) Label() string {
	switch c {
	case VeryLow:
		return "Very Low"
	case Low:
		return "Low"
	case Moderate:
		return "Moderate"
	case High:
		return "High"
	case VeryHigh:
		return "Very High"
	case Extreme:
		return "Extreme"
	}
	return "Unknown"
}

// Band breakpoints in dB. Each band is half-open: [lower, upper).
const (
	BreakLow      = 30.0
	BreakModerate = 43.0
	BreakHigh     = 55.0
	BreakVeryHigh = 60.0
	BreakExtreme  = 90.0
)

// Converter and calibration constants for the 12-bit microphone front end.
const (
	FullScaleVolts   = 3.3
	ConverterBits    = 12
	OffsetVolts      = 1.65
	ReferenceVolts   = 0.0001
	FilterWindowSize = 5
)

// SilenceDB is returned by ToDecibels when the input voltage has no defined
// logarithm (zero, negative or non-finite).
const SilenceDB = 0.0

// Reading is one processed acquisition burst.
type Reading struct {
	Time time.Time
	// RMS of the raw converter codes.
	RawPower float64
	// Normalized voltage after the moving-average filter.
	FilteredPower float64
	Decibels      float64
	Class         Class
}
