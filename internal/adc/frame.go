package adc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Serial link control bytes.
const (
	cmdRequest = 0x25 // start a burst
	cmdResend  = 0x19 // last frame was corrupt, send it again
	cmdAck     = 0x07 // frame accepted
)

// frameHeaderSize is the length + checksum prefix of a burst frame.
const frameHeaderSize = 4

var (
	// ErrFrameLength is returned when a frame header announces the wrong payload size.
	ErrFrameLength = errors.New("adc: unexpected frame length")
	// ErrChecksum is returned when the payload does not match its CRC.
	ErrChecksum = errors.New("adc: checksum mismatch")
)

const crcPolynomial uint16 = 0x1021

// checksum computes CRC-16/CCITT (init 0xFFFF) over data.
func checksum(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// readFrame reads one burst frame: len:u16le | crc:u16le | samples:[N]u16le.
func readFrame(r io.Reader) (Buffer, error) {
	var buf Buffer

	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return buf, fmt.Errorf("read frame header: %w", err)
	}

	length := int(binary.LittleEndian.Uint16(header[0:2]))
	want := binary.LittleEndian.Uint16(header[2:4])
	if length != 2*SampleCount {
		return buf, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameLength, length, 2*SampleCount)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return buf, fmt.Errorf("read frame payload: %w", err)
	}

	if got := checksum(payload); got != want {
		return buf, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrChecksum, want, got)
	}

	for i := range buf {
		buf[i] = binary.LittleEndian.Uint16(payload[2*i:])
	}
	return buf, nil
}
