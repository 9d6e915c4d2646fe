package display

import (
	"fmt"
	"strings"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

const (
	titleTop    = "SOUND"
	titleBottom = "MONITOR"

	// ReadyText is shown once the startup sequence completes.
	ReadyText = "Ready!"
	// StartingText is shown under the title while the progress bar fills.
	StartingText = "Starting..."
	// StoppingText is the shutdown phrase; dots are appended per frame.
	StoppingText = "Shutting down"

	progressCells = 10
)

func title(d Display, compact bool) {
	if compact {
		d.DrawText(titleTop, 1, 1, 2)
		d.DrawText(titleBottom, 20, 17, 2)
		return
	}
	d.DrawText(titleTop, 1, 5, 2)
	d.DrawText(titleBottom, 20, 20, 2)
}

// ProgressBar returns the text bar for percent, one cell per 10%.
func ProgressBar(percent int) string {
	filled := percent / (100 / progressCells)
	if filled < 0 {
		filled = 0
	}
	if filled > progressCells {
		filled = progressCells
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", progressCells-filled) + "]"
}

// Progress draws one frame of the startup animation.
func Progress(d Display, percent int) error {
	d.Clear()
	title(d, true)
	d.DrawText(StartingText, 20, 33, 1)
	d.DrawText(ProgressBar(percent), 5, 52, 1)
	return d.Flush()
}

// Ready draws the frame shown when startup completes.
func Ready(d Display) error {
	d.Clear()
	title(d, true)
	d.DrawText(ReadyText, 25, 40, 2)
	return d.Flush()
}

// ShuttingDown draws one frame of the shutdown animation with the given
// number of trailing dots.
func ShuttingDown(d Display, dots int) error {
	d.Clear()
	title(d, true)
	d.DrawText(StoppingText+strings.Repeat(".", dots), 20, 40, 1)
	return d.Flush()
}

// VolumeText is the classification line of the reading screen.
func VolumeText(c loudness.Class) string {
	return "Volume: " + c.Label()
}

// DecibelText is the level line of the reading screen.
func DecibelText(db float64) string {
	return fmt.Sprintf("dB: %5.2f", db)
}

// ShowReading draws the running screen for r.
func ShowReading(d Display, r loudness.Reading) error {
	d.Clear()
	title(d, false)
	d.DrawLine(0, 36, Width-1, 36)
	d.DrawText(VolumeText(r.Class), 5, 40, 1)
	d.DrawText(DecibelText(r.Decibels), 5, 50, 1)
	return d.Flush()
}

// Blank clears the panel.
func Blank(d Display) error {
	d.Clear()
	return d.Flush()
}
