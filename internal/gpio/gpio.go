// Package gpio provides button input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the control buttons.
type Reader interface {
	// Read returns the logical pressed states of the start and stop buttons.
	// The buttons pull their lines low when pressed.
	// Returns (startPressed, stopPressed, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinStart = 5 // button A
	DefaultPinStop  = 6 // button B, hold to stop
)
