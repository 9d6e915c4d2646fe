// Package network brings the telemetry network link up and down.
package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/sound-monitor/internal/clock"
)

// ErrNotConnected is returned when every connection attempt failed.
var ErrNotConnected = errors.New("network: not connected")

// Status reports whether the telemetry network is usable.
type Status struct {
	Connected bool
}

// Link joins and leaves the network.
type Link interface {
	// Connect brings the link up. It must give up when ctx is done.
	Connect(ctx context.Context) error
	// Disconnect tears the link down.
	Disconnect() error
}

// Connector runs bounded connection attempts against a Link.
type Connector struct {
	Link     Link
	Attempts int
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Backoff is the wait between failed attempts.
	Backoff time.Duration
	Clock   clock.Clock
	Log     zerolog.Logger
}

// Connect tries the link up to Attempts times and reports the outcome.
// Failure is not fatal to the caller; the returned error wraps
// ErrNotConnected and the last link error.
func (c *Connector) Connect(ctx context.Context) (Status, error) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		c.Log.Info().Int("attempt", i).Int("of", attempts).Msg("connecting to network")

		actx, cancel := context.WithTimeout(ctx, c.Timeout)
		err := c.Link.Connect(actx)
		cancel()
		if err == nil {
			c.Log.Info().Int("attempt", i).Msg("network connected")
			return Status{Connected: true}, nil
		}

		lastErr = err
		c.Log.Warn().Err(err).Int("attempt", i).Msg("network connect failed")

		if ctx.Err() != nil {
			break
		}
		if i < attempts && c.Backoff > 0 {
			c.Clock.Sleep(c.Backoff)
		}
	}
	return Status{}, fmt.Errorf("%w: %w", ErrNotConnected, lastErr)
}

// Disconnect tears the link down.
func (c *Connector) Disconnect() error {
	return c.Link.Disconnect()
}
