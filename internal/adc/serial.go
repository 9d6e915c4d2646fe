package adc

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// port is the subset of *serial.Port used by SerialSampler.
type port interface {
	io.ReadWriter
	// Flush discards data written but not transmitted and data received but not read.
	Flush() error
	Close() error
}

// SerialSampler acquires bursts from the front-end microcontroller over a
// serial link.
type SerialSampler struct {
	port port
	log  zerolog.Logger
}

// NewSerialSampler opens the serial device. Failure to open it is fatal for
// the daemon: there is no other sample source.
func NewSerialSampler(name string, baud int, log zerolog.Logger) (*SerialSampler, error) {
	// ReadTimeout 0 blocks until data arrives.
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return newSerialSampler(p, log), nil
}

func newSerialSampler(p port, log zerolog.Logger) *SerialSampler {
	return &SerialSampler{port: p, log: log}
}

// Acquire requests one burst and blocks until the full frame has arrived.
// A corrupt frame is requested once more before giving up.
func (s *SerialSampler) Acquire() (Buffer, error) {
	if err := s.port.Flush(); err != nil {
		return Buffer{}, fmt.Errorf("discard stale samples: %w", err)
	}
	if err := s.send(cmdRequest); err != nil {
		return Buffer{}, fmt.Errorf("request burst: %w", err)
	}

	buf, err := readFrame(s.port)
	if errors.Is(err, ErrChecksum) || errors.Is(err, ErrFrameLength) {
		s.log.Warn().Err(err).Msg("corrupt burst, requesting resend")
		if err := s.port.Flush(); err != nil {
			return Buffer{}, fmt.Errorf("discard corrupt frame: %w", err)
		}
		if err := s.send(cmdResend); err != nil {
			return Buffer{}, fmt.Errorf("request resend: %w", err)
		}
		buf, err = readFrame(s.port)
	}
	if err != nil {
		return Buffer{}, err
	}

	if err := s.send(cmdAck); err != nil {
		// The burst is complete; a lost ack only delays the front end.
		s.log.Debug().Err(err).Msg("failed to ack burst")
	}
	return buf, nil
}

func (s *SerialSampler) send(b byte) error {
	_, err := s.port.Write([]byte{b})
	return err
}

// Close releases the serial device.
func (s *SerialSampler) Close() error {
	return s.port.Close()
}
