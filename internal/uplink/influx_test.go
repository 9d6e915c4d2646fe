package uplink

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

func TestInfluxPoint(t *testing.T) {
	in := NewInflux("http://localhost:8086", "token", "org", "bucket", "hall")
	defer in.Close()

	r := loudness.Reading{
		Time:          time.Unix(1700000000, 0),
		RawPower:      2101.5,
		FilteredPower: 0.0845,
		Decibels:      58.54,
		Class:         loudness.High,
	}
	line := write.PointToLineProtocol(in.Point(r), time.Second)

	assert.Contains(t, line, "sound,device=hall ")
	assert.Contains(t, line, "db=58.54")
	assert.Contains(t, line, `class="HIGH"`)
	assert.Contains(t, line, " 1700000000")
}

func TestInfluxDelivers(t *testing.T) {
	bodies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		bodies <- r.URL.Query().Get("bucket") + " " + string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	in := NewInflux(srv.URL, "token", "org", "levels", "hall")
	defer in.Close()

	s := NewScheduler(in, time.Second, zerolog.Nop())
	require.True(t, s.Check(loudness.Reading{Time: t0, Decibels: 44.2, Class: loudness.Moderate}, up, t0))
	drain(s)
	require.Equal(t, 1, s.Stats().Delivered, s.Stats().LastError)

	body := <-bodies
	assert.Contains(t, body, "levels sound,device=hall")
	assert.Contains(t, body, "db=44.2")
}

func TestInfluxServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized","message":"unauthorized access"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	in := NewInflux(srv.URL, "bad", "org", "levels", "hall")
	defer in.Close()

	s := NewScheduler(in, time.Second, zerolog.Nop())
	require.True(t, s.Check(loudness.Reading{Time: t0, Decibels: 44.2}, up, t0))
	drain(s)
	assert.Equal(t, 1, s.Stats().Failed)
}
