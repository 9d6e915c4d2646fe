//go:build !linux

package gpio

import (
	"errors"
	"fmt"
	"time"
)

var errNoCharDev = errors.New("gpio: character device requires Linux")

// RealReader is a placeholder off Linux; every call fails.
type RealReader struct{}

// NewRealReader always fails off Linux so the daemon refuses to run without buttons.
func NewRealReader(chipName string, pinStart, pinStop int, debounce time.Duration) (*RealReader, error) {
	return nil, fmt.Errorf("open %s (start=%d stop=%d): %w", chipName, pinStart, pinStop, errNoCharDev)
}

func (r *RealReader) Read() (bool, bool, error) { return false, false, errNoCharDev }

func (r *RealReader) Close() error { return nil }
