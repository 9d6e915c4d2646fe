package network

import (
	"context"
	"fmt"
	"net"
)

// ProbeLink treats TCP reachability of the telemetry endpoint as
// connectivity. Used when the board's network is managed elsewhere.
type ProbeLink struct {
	addr   string
	dialer net.Dialer
}

// NewProbeLink creates a link that probes addr (host:port).
func NewProbeLink(addr string) *ProbeLink {
	return &ProbeLink{addr: addr}
}

// Connect dials the endpoint and immediately hangs up.
func (l *ProbeLink) Connect(ctx context.Context) error {
	conn, err := l.dialer.DialContext(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("probe %s: %w", l.addr, err)
	}
	return conn.Close()
}

// Disconnect is a no-op; the probe holds no connection.
func (l *ProbeLink) Disconnect() error {
	return nil
}
