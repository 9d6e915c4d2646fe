package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

func TestObserveReading(t *testing.T) {
	m := New()
	m.ObserveReading(loudness.Reading{Decibels: 58.5, FilteredPower: 0.084, Class: loudness.High})
	m.ObserveReading(loudness.Reading{Decibels: 35.0, FilteredPower: 0.005, Class: loudness.Low})

	assert.Equal(t, 35.0, testutil.ToFloat64(m.decibels))
	assert.Equal(t, 0.005, testutil.ToFloat64(m.filteredVoltage))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.class.WithLabelValues("LOW")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.class.WithLabelValues("HIGH")))
	assert.Equal(t, len(loudness.Classes), testutil.CollectAndCount(m.class))
}

func TestSetState(t *testing.T) {
	m := New()
	states := []string{"IDLE", "STARTING", "RUNNING", "STOPPING"}
	m.SetState("RUNNING", states)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("RUNNING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("IDLE")))

	m.SetState("STOPPING", states)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("RUNNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("STOPPING")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.SetConnected(true)
	m.IncAcquireError()
	m.ObserveUplink(true)
	m.ObserveUplink(true)
	m.ObserveUplink(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.acquireErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.uplinkJobs.WithLabelValues(ResultDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uplinkJobs.WithLabelValues(ResultFailed)))

	m.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.ObserveReading(loudness.Reading{Decibels: 61.25, Class: loudness.VeryHigh})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.True(t, strings.Contains(text, "sound_monitor_level_decibels 61.25"), text)
	assert.Contains(t, text, `sound_monitor_level_class{class="VERY_HIGH"} 1`)
	assert.Contains(t, text, `sound_monitor_uplink_jobs_total{result="failed"} 0`)
	assert.Contains(t, text, "go_goroutines")
}

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.IncAcquireError()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.acquireErrors))
}
