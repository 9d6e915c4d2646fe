package led

import "fmt"

// FakeStrip is an in-memory Strip that records what was written out.
type FakeStrip struct {
	// Pixels is the current buffer.
	Pixels []Color

	// Written holds a copy of the buffer at every WriteOut.
	Written [][]Color

	// ClearCalls counts ClearAll calls.
	ClearCalls int

	// WriteError, if set, will be returned by WriteOut.
	WriteError error
}

// NewFakeStrip creates a FakeStrip with n LEDs.
func NewFakeStrip(n int) *FakeStrip {
	return &FakeStrip{Pixels: make([]Color, n)}
}

func (f *FakeStrip) SetPixel(index int, r, g, b uint8) {
	if index < 0 || index >= len(f.Pixels) {
		panic(fmt.Sprintf("led: index %d out of range [0,%d)", index, len(f.Pixels)))
	}
	f.Pixels[index] = Color{r, g, b}
}

func (f *FakeStrip) ClearAll() {
	f.ClearCalls++
	for i := range f.Pixels {
		f.Pixels[i] = Off
	}
}

// WriteOut snapshots the buffer.
func (f *FakeStrip) WriteOut() error {
	if f.WriteError != nil {
		return f.WriteError
	}
	snap := make([]Color, len(f.Pixels))
	copy(snap, f.Pixels)
	f.Written = append(f.Written, snap)
	return nil
}

// LastWritten returns the most recent buffer pushed to the "hardware".
func (f *FakeStrip) LastWritten() []Color {
	if len(f.Written) == 0 {
		return nil
	}
	return f.Written[len(f.Written)-1]
}

// AllOff reports whether the last written buffer is entirely dark.
func (f *FakeStrip) AllOff() bool {
	last := f.LastWritten()
	if last == nil {
		return false
	}
	for _, c := range last {
		if c != Off {
			return false
		}
	}
	return true
}
