package uplink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// ThingSpeak delivers readings as a single HTTP/1.1 GET on a fresh TCP
// connection, closed once the request is written. The response is not read.
type ThingSpeak struct {
	Host   string
	Port   int
	APIKey string

	lookup func(ctx context.Context, host string) ([]string, error)
	dialer *net.Dialer
}

// dialTimeout bounds the connect to one resolved address so a dead address
// leaves time for the next.
const dialTimeout = 5 * time.Second

// NewThingSpeak creates a ThingSpeak transport for host:port.
func NewThingSpeak(host string, port int, apiKey string) *ThingSpeak {
	return &ThingSpeak{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		lookup: net.DefaultResolver.LookupHost,
		dialer: &net.Dialer{Timeout: dialTimeout},
	}
}

// Name implements Transport.
func (t *ThingSpeak) Name() string { return "thingspeak" }

// Request returns the exact bytes written for a reading.
func (t *ThingSpeak) Request(r loudness.Reading) []byte {
	return []byte(fmt.Sprintf(
		"GET /update?api_key=%s&field1=%.2f HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n",
		t.APIKey, r.Decibels, t.Host))
}

// Plan implements Transport: resolve, connect, send.
func (t *ThingSpeak) Plan(r loudness.Reading) Plan {
	var (
		addrs []string
		conn  net.Conn
	)
	req := t.Request(r)

	resolve := func(ctx context.Context) error {
		var err error
		addrs, err = t.lookup(ctx, t.Host)
		if err != nil {
			return err
		}
		if len(addrs) == 0 {
			return fmt.Errorf("no addresses for %s", t.Host)
		}
		return nil
	}

	// connect tries each resolved address in order.
	connect := func(ctx context.Context) error {
		var errs []error
		for _, a := range addrs {
			c, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(a, strconv.Itoa(t.Port)))
			if err == nil {
				conn = c
				return nil
			}
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
		return errors.Join(errs...)
	}

	send := func(ctx context.Context) error {
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetWriteDeadline(deadline)
		}
		stop := context.AfterFunc(ctx, func() {
			conn.SetWriteDeadline(time.Now())
		})
		defer stop()

		if _, err := conn.Write(req); err != nil {
			return fmt.Errorf("write request: %w", err)
		}
		return nil
	}

	return Plan{
		Steps: []Step{
			{Stage: StageResolving, Run: resolve},
			{Stage: StageConnecting, Run: connect},
			{Stage: StageSending, Run: send},
		},
		Release: func() {
			if conn != nil {
				conn.Close()
			}
		},
	}
}
