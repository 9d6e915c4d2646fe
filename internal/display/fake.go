package display

import "strings"

// Text is one DrawText call.
type Text struct {
	Msg   string
	X, Y  int
	Scale int
}

// Shape is one DrawLine or DrawRect call.
type Shape struct {
	X1, Y1, X2, Y2 int
}

// Frame is everything drawn between a Clear and a Flush.
type Frame struct {
	Texts []Text
	Lines []Shape
	Rects []Shape
}

// Contains reports whether any text on the frame contains s.
func (f Frame) Contains(s string) bool {
	for _, t := range f.Texts {
		if strings.Contains(t.Msg, s) {
			return true
		}
	}
	return false
}

// Empty reports whether nothing was drawn on the frame.
func (f Frame) Empty() bool {
	return len(f.Texts) == 0 && len(f.Lines) == 0 && len(f.Rects) == 0
}

// FakeDisplay records every flushed frame for test assertions.
type FakeDisplay struct {
	// Frames contains every flushed frame in order.
	Frames []Frame

	// Clears counts Clear calls.
	Clears int

	// FlushError, if set, will be returned by Flush.
	FlushError error

	current Frame
}

// NewFakeDisplay creates an empty FakeDisplay.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

func (f *FakeDisplay) Clear() {
	f.Clears++
	f.current = Frame{}
}

func (f *FakeDisplay) DrawText(msg string, x, y, scale int) {
	f.current.Texts = append(f.current.Texts, Text{Msg: msg, X: x, Y: y, Scale: scale})
}

func (f *FakeDisplay) DrawLine(x1, y1, x2, y2 int) {
	f.current.Lines = append(f.current.Lines, Shape{x1, y1, x2, y2})
}

func (f *FakeDisplay) DrawRect(x1, y1, x2, y2 int) {
	f.current.Rects = append(f.current.Rects, Shape{x1, y1, x2, y2})
}

// Flush records the current frame.
func (f *FakeDisplay) Flush() error {
	if f.FlushError != nil {
		return f.FlushError
	}
	f.Frames = append(f.Frames, f.current)
	return nil
}

// Count returns how many flushed frames contain s.
func (f *FakeDisplay) Count(s string) int {
	n := 0
	for _, fr := range f.Frames {
		if fr.Contains(s) {
			n++
		}
	}
	return n
}

// Last returns the most recent flushed frame.
func (f *FakeDisplay) Last() Frame {
	if len(f.Frames) == 0 {
		return Frame{}
	}
	return f.Frames[len(f.Frames)-1]
}

// Reset clears recorded frames.
func (f *FakeDisplay) Reset() {
	f.Frames = nil
	f.Clears = 0
	f.FlushError = nil
	f.current = Frame{}
}
