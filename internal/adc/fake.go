package adc

import "errors"

// FakeSampler is a test double that returns scripted bursts.
type FakeSampler struct {
	// Buffers contains scripted bursts. Each call to Acquire consumes the
	// next one; once exhausted, the last burst is repeated.
	Buffers []Buffer

	// AcquireError, if set, will be returned by Acquire.
	AcquireError error

	// Acquired counts successful Acquire calls.
	Acquired int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeSampler creates a FakeSampler with the given bursts.
func NewFakeSampler(buffers ...Buffer) *FakeSampler {
	return &FakeSampler{Buffers: buffers}
}

// Constant returns a burst with every sample set to v.
func Constant(v uint16) Buffer {
	var b Buffer
	for i := range b {
		b[i] = v
	}
	return b
}

// Acquire returns the next scripted burst.
func (f *FakeSampler) Acquire() (Buffer, error) {
	if f.AcquireError != nil {
		return Buffer{}, f.AcquireError
	}
	if len(f.Buffers) == 0 {
		return Buffer{}, errors.New("no bursts configured")
	}

	b := f.Buffers[f.index]
	if f.index < len(f.Buffers)-1 {
		f.index++
	}
	f.Acquired++
	return b, nil
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.Closed = true
	return nil
}
