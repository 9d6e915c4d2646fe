// Package display renders the monitor's screens onto a 128x64 text display.
// Pixel drawing belongs to the Display implementation; this package only
// decides what goes where.
package display

// Panel geometry.
const (
	Width  = 128
	Height = 64
)

// Display is the drawing surface of the attached panel.
type Display interface {
	Clear()
	DrawText(msg string, x, y, scale int)
	DrawLine(x1, y1, x2, y2 int)
	DrawRect(x1, y1, x2, y2 int)
	// Flush pushes the frame buffer to the panel.
	Flush() error
}
