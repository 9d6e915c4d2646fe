package display

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogDisplay renders frames as log lines. It stands in for a physical panel
// on headless boards and during bench testing.
type LogDisplay struct {
	log   zerolog.Logger
	lines []string
	last  string
}

// NewLogDisplay creates a LogDisplay writing to log at debug level.
func NewLogDisplay(log zerolog.Logger) *LogDisplay {
	return &LogDisplay{log: log}
}

func (d *LogDisplay) Clear() {
	d.lines = d.lines[:0]
}

func (d *LogDisplay) DrawText(msg string, x, y, scale int) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	d.lines = append(d.lines, msg)
}

func (d *LogDisplay) DrawLine(x1, y1, x2, y2 int) {}

func (d *LogDisplay) DrawRect(x1, y1, x2, y2 int) {}

// Flush logs the frame text, skipping frames identical to the previous one.
func (d *LogDisplay) Flush() error {
	text := strings.Join(d.lines, " | ")
	if text == d.last {
		return nil
	}
	d.last = text
	d.log.Debug().Str("frame", text).Msg("display")
	return nil
}
