package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader(
		Sample{Start: true},
		Sample{Stop: true},
		Sample{Start: true, Stop: true},
	)

	start, stop, err := f.Read()
	require.NoError(t, err)
	assert.True(t, start)
	assert.False(t, stop)

	start, stop, err = f.Read()
	require.NoError(t, err)
	assert.False(t, start)
	assert.True(t, stop)

	start, stop, err = f.Read()
	require.NoError(t, err)
	assert.True(t, start)
	assert.True(t, stop)

	// Fourth read should repeat last sample
	start, stop, err = f.Read()
	require.NoError(t, err)
	assert.True(t, start)
	assert.True(t, stop)
	assert.Equal(t, 4, f.Reads)
}

func TestFakeReaderNoSamples(t *testing.T) {
	_, _, err := NewFakeReader().Read()
	assert.Error(t, err, "expected error with no samples")
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader(Sample{Start: true})
	f.ReadError = errors.New("simulated error")

	_, _, err := f.Read()
	assert.EqualError(t, err, "simulated error")
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader(Released)
	assert.False(t, f.Closed, "should not be closed initially")

	require.NoError(t, f.Close())
	assert.True(t, f.Closed, "should be closed after Close()")
}

func TestFakeReaderReset(t *testing.T) {
	f := NewFakeReader(Sample{Start: true}, Sample{Stop: true})

	// Consume first sample
	f.Read()
	f.Reset()

	// Should read first sample again
	start, stop, _ := f.Read()
	assert.True(t, start)
	assert.False(t, stop)
}
