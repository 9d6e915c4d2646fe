// Package adc acquires raw microphone bursts from the analog front end.
// The real implementation talks to the ADC/DMA microcontroller over a serial
// link. The fake implementation allows testing without hardware.
package adc

// SampleCount is the number of converter outputs in one acquisition burst.
const SampleCount = 400

// Buffer holds one acquisition burst of 12-bit converter codes.
type Buffer [SampleCount]uint16

// Sampler acquires bursts from the converter.
type Sampler interface {
	// Acquire discards any stale converter data, captures exactly
	// SampleCount samples and blocks until the transfer completes.
	// There is no timeout: a stalled front end blocks the caller.
	Acquire() (Buffer, error)

	// Close releases the peripheral.
	Close() error
}
