package adc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort models the front end: every request or resend byte queues the
// next scripted reply; Flush drops whatever has not been read yet.
type fakePort struct {
	replies  [][]byte
	pending  *bytes.Reader
	written  []byte
	flushes  int
	closed   bool
	writeErr error
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.pending == nil {
		return 0, io.EOF
	}
	return p.pending.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, b...)
	for _, c := range b {
		if c != cmdRequest && c != cmdResend {
			continue
		}
		if len(p.replies) == 0 {
			p.pending = nil
			continue
		}
		p.pending = bytes.NewReader(p.replies[0])
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *fakePort) Flush() error {
	p.flushes++
	p.pending = nil
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func encodeFrame(b Buffer) []byte {
	payload := make([]byte, 2*len(b))
	for i, v := range b {
		binary.LittleEndian.PutUint16(payload[2*i:], v)
	}
	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint16(frame[0:2], uint16(len(payload)))
	binary.LittleEndian.PutUint16(frame[2:4], checksum(payload))
	return append(frame, payload...)
}

func ramp() Buffer {
	var b Buffer
	for i := range b {
		b[i] = uint16(i * 10)
	}
	return b
}

func TestChecksumKnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	assert.Equal(t, uint16(0x29B1), checksum([]byte("123456789")))
	assert.Equal(t, uint16(0xFFFF), checksum(nil))
}

func TestReadFrame(t *testing.T) {
	want := ramp()
	got, err := readFrame(bytes.NewReader(encodeFrame(want)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadFrameBadLength(t *testing.T) {
	frame := encodeFrame(ramp())
	binary.LittleEndian.PutUint16(frame[0:2], 10)

	_, err := readFrame(bytes.NewReader(frame))
	assert.ErrorIs(t, err, ErrFrameLength)
}

func TestReadFrameBadChecksum(t *testing.T) {
	frame := encodeFrame(ramp())
	frame[len(frame)-1] ^= 0xFF

	_, err := readFrame(bytes.NewReader(frame))
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestReadFrameTruncated(t *testing.T) {
	frame := encodeFrame(ramp())
	_, err := readFrame(bytes.NewReader(frame[:100]))
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSerialSamplerAcquire(t *testing.T) {
	want := ramp()
	p := &fakePort{replies: [][]byte{encodeFrame(want)}}
	// Stale bytes from a previous burst must be discarded.
	p.pending = bytes.NewReader([]byte{0xDE, 0xAD})
	s := newSerialSampler(p, zerolog.Nop())

	got, err := s.Acquire()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []byte{cmdRequest, cmdAck}, p.written)
	assert.Equal(t, 1, p.flushes)
}

func TestSerialSamplerResendOnCorruptFrame(t *testing.T) {
	want := ramp()
	corrupt := encodeFrame(want)
	corrupt[10] ^= 0x01
	p := &fakePort{replies: [][]byte{corrupt, encodeFrame(want)}}
	s := newSerialSampler(p, zerolog.Nop())

	got, err := s.Acquire()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []byte{cmdRequest, cmdResend, cmdAck}, p.written)
	assert.Equal(t, 2, p.flushes)
}

func TestSerialSamplerGivesUpAfterSecondCorruptFrame(t *testing.T) {
	corrupt := encodeFrame(ramp())
	corrupt[10] ^= 0x01
	p := &fakePort{replies: [][]byte{corrupt, corrupt}}
	s := newSerialSampler(p, zerolog.Nop())

	_, err := s.Acquire()
	assert.ErrorIs(t, err, ErrChecksum)
	assert.Equal(t, []byte{cmdRequest, cmdResend}, p.written)
}

func TestSerialSamplerWriteError(t *testing.T) {
	p := &fakePort{writeErr: errors.New("port gone")}
	s := newSerialSampler(p, zerolog.Nop())

	_, err := s.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request burst")
}

func TestSerialSamplerClose(t *testing.T) {
	p := &fakePort{}
	s := newSerialSampler(p, zerolog.Nop())
	require.NoError(t, s.Close())
	assert.True(t, p.closed)
}
