//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the buttons from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	startLine *gpiocdev.Line
	stopLine  *gpiocdev.Line
}

// NewRealReader requests the two button lines on chip as active-low inputs
// with pull-ups, debounced by the kernel.
func NewRealReader(chipName string, pinStart, pinStop int, debounce time.Duration) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	startLine, err := chip.RequestLine(pinStart, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request start pin %d: %w", pinStart, err)
	}

	stopLine, err := chip.RequestLine(pinStop, opts...)
	if err != nil {
		startLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request stop pin %d: %w", pinStop, err)
	}

	return &RealReader{
		chip:      chip,
		startLine: startLine,
		stopLine:  stopLine,
	}, nil
}

// Read returns the logical pressed states. Lines are requested active-low,
// so a value of 1 means the button is held.
func (r *RealReader) Read() (bool, bool, error) {
	start, err := r.startLine.Value()
	if err != nil {
		return false, false, fmt.Errorf("read start pin: %w", err)
	}

	stop, err := r.stopLine.Value()
	if err != nil {
		return false, false, fmt.Errorf("read stop pin: %w", err)
	}

	return start == 1, stop == 1, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error

	if r.startLine != nil {
		if err := r.startLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close start pin: %w", err))
		}
	}
	if r.stopLine != nil {
		if err := r.stopLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stop pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
