package uplink

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// listen accepts a single connection and returns everything written to it.
func listen(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		data, _ := io.ReadAll(conn)
		got <- string(data)
	}()
	return ln.Addr().(*net.TCPAddr).Port, got
}

func TestThingSpeakRequest(t *testing.T) {
	ts := NewThingSpeak("api.thingspeak.com", 80, "ABC123")
	got := ts.Request(loudness.Reading{Decibels: 58.538})
	assert.Equal(t,
		"GET /update?api_key=ABC123&field1=58.54 HTTP/1.1\r\nHost: api.thingspeak.com\r\nConnection: close\r\n\r\n",
		string(got))
}

func TestThingSpeakDelivers(t *testing.T) {
	port, got := listen(t)
	ts := NewThingSpeak("127.0.0.1", port, "KEY")
	s := NewScheduler(ts, 10*time.Second, zerolog.Nop())

	require.True(t, s.Check(loudness.Reading{Decibels: 42.1}, up, t0))
	drain(s)
	require.Equal(t, 1, s.Stats().Delivered, s.Stats().LastError)

	select {
	case req := <-got:
		assert.Equal(t,
			"GET /update?api_key=KEY&field1=42.10 HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: close\r\n\r\n",
			req)
	case <-time.After(5 * time.Second):
		t.Fatal("request not received")
	}
}

func TestThingSpeakConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewScheduler(NewThingSpeak("127.0.0.1", port, "KEY"), time.Second, zerolog.Nop())
	require.True(t, s.Check(loudness.Reading{Decibels: 50}, up, t0))
	drain(s)

	st := s.Stats()
	assert.Equal(t, 1, st.Failed)
	assert.Contains(t, st.LastError, "CONNECTING")
}

func TestThingSpeakFallsBackToNextAddress(t *testing.T) {
	port, got := listen(t)
	ts := NewThingSpeak("sensors.example", port, "KEY")
	// Only 127.0.0.1 has a listener on port.
	ts.lookup = func(context.Context, string) ([]string, error) {
		return []string{"::1", "127.0.0.1"}, nil
	}
	s := NewScheduler(ts, 10*time.Second, zerolog.Nop())

	require.True(t, s.Check(loudness.Reading{Decibels: 61}, up, t0))
	drain(s)
	require.Equal(t, 1, s.Stats().Delivered, s.Stats().LastError)

	select {
	case req := <-got:
		assert.Contains(t, req, "field1=61.00")
		assert.Contains(t, req, "Host: sensors.example\r\n")
	case <-time.After(5 * time.Second):
		t.Fatal("request not received")
	}
}

func TestThingSpeakAllAddressesFail(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ts := NewThingSpeak("sensors.example", port, "KEY")
	ts.lookup = func(context.Context, string) ([]string, error) {
		return []string{"127.0.0.1", "127.0.0.1"}, nil
	}
	s := NewScheduler(ts, time.Second, zerolog.Nop())
	require.True(t, s.Check(loudness.Reading{Decibels: 50}, up, t0))
	drain(s)

	st := s.Stats()
	assert.Equal(t, 1, st.Failed)
	assert.Contains(t, st.LastError, "CONNECTING")
	assert.Equal(t, 2, strings.Count(st.LastError, "refused"))
}
