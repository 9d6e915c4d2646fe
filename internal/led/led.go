// Package led drives the addressable LED matrix from loudness readings.
package led

import (
	"github.com/sweeney/sound-monitor/internal/loudness"
)

// Count is the number of LEDs on the 5x5 matrix.
const Count = 25

// Strip is the LED array driver. SetPixel and ClearAll only touch the
// buffer; WriteOut pushes it to the hardware.
type Strip interface {
	SetPixel(index int, r, g, b uint8)
	ClearAll()
	WriteOut() error
}

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// Off is the colour of a dark LED.
var Off = Color{}

// palette maps each band to the matrix colour. Extreme has its own colour so
// the top band is distinguishable from VeryHigh.
var palette = map[loudness.Class]Color{
	loudness.VeryLow:  {0, 0, 80},
	loudness.Low:      {0, 0, 80},
	loudness.Moderate: {0, 80, 0},
	loudness.High:     {80, 0, 0},
	loudness.VeryHigh: {80, 0, 0},
	loudness.Extreme:  {80, 0, 80},
}

// ColorFor returns the matrix colour for a band. Unknown bands are dark.
func ColorFor(c loudness.Class) Color {
	col, ok := palette[c]
	if !ok {
		return Off
	}
	return col
}

// Fill sets every LED to col and writes the strip out.
func Fill(s Strip, n int, col Color) error {
	s.ClearAll()
	for i := 0; i < n; i++ {
		s.SetPixel(i, col.R, col.G, col.B)
	}
	return s.WriteOut()
}

// ShowClass fills the strip with the colour for c.
func ShowClass(s Strip, n int, c loudness.Class) error {
	return Fill(s, n, ColorFor(c))
}

// Clear turns every LED off and writes the strip out.
func Clear(s Strip) error {
	s.ClearAll()
	return s.WriteOut()
}
