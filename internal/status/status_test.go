package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	tr := NewTracker(start, Config{
		CycleMs:          1000,
		UplinkIntervalMs: 10000,
		Transport:        "thingspeak",
		UplinkHost:       "api.thingspeak.com",
		HTTPAddr:         ":8080",
	})
	tr.now = func() time.Time { return start.Add(90 * time.Second) }
	return tr
}

func TestNewTrackerDefaults(t *testing.T) {
	snap := newTestTracker().Snapshot()
	assert.Equal(t, "IDLE", snap.State)
	assert.False(t, snap.HasReading)
	assert.Equal(t, 90*time.Second, snap.Uptime())
}

func TestTrackerRecordsState(t *testing.T) {
	tr := newTestTracker()
	r := loudness.Reading{Time: start.Add(time.Minute), Decibels: 51.234, Class: loudness.Moderate}

	tr.SetState("RUNNING")
	tr.RecordReading(r)
	tr.RecordReading(r)
	tr.RecordAcquireError()
	tr.SetConnected(true)
	tr.SetMQTTConnected(true)
	tr.SetUplink(UplinkStats{Issued: 3, Delivered: 2, Failed: 1, LastError: "dial tcp: timeout"})
	tr.SetNetwork(&NetworkInfo{Status: "connected", SSID: "HomeNet"})

	snap := tr.Snapshot()
	assert.Equal(t, "RUNNING", snap.State)
	assert.Equal(t, r, snap.Reading)
	assert.True(t, snap.HasReading)
	assert.Equal(t, 2, snap.Cycles)
	assert.Equal(t, 1, snap.AcquireErrors)
	assert.True(t, snap.Connected)
	assert.True(t, snap.MQTTConnected)
	assert.Equal(t, 3, snap.Uplink.Issued)
	assert.Equal(t, "HomeNet", snap.Network.SSID)
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.RecordReading(loudness.Reading{Decibels: float64(j)})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, tr.Snapshot().Cycles)
}

func TestFormatJSON(t *testing.T) {
	tr := newTestTracker()
	tr.SetState("RUNNING")
	tr.RecordReading(loudness.Reading{Time: start, Decibels: 61.256, Class: loudness.VeryHigh})

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &sj))

	assert.Equal(t, "RUNNING", sj.Status.State)
	require.NotNil(t, sj.Status.Reading)
	assert.Equal(t, 61.26, sj.Status.Reading.Decibels)
	assert.Equal(t, "VERY_HIGH", sj.Status.Reading.Class)
	assert.Equal(t, int64(90), sj.Status.UptimeSeconds)
	assert.Equal(t, "thingspeak", sj.Status.Uplink.Transport)
	assert.Equal(t, int64(10000), sj.Status.Config.UplinkIntervalMs)
	assert.Empty(t, sj.Status.Event)
	assert.Nil(t, sj.Status.Network)
}

func TestFormatJSONNoReadingOmitted(t *testing.T) {
	data := FormatJSON(newTestTracker().Snapshot())
	assert.NotContains(t, string(data), `"reading"`)
}

func TestFormatJSONUnknownState(t *testing.T) {
	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(Snapshot{}), &sj))
	assert.Equal(t, "UNKNOWN", sj.Status.State)
}

func TestFormatStatusEvent(t *testing.T) {
	tr := newTestTracker()
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.50", Status: "connected"})

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(data, &sj))
	assert.Equal(t, "SHUTDOWN", sj.Status.Event)
	assert.Equal(t, "SIGTERM", sj.Status.Reason)
	require.NotNil(t, sj.Status.Network)
	assert.Equal(t, "192.168.1.50", sj.Status.Network.IP)
	// Compact, single-line payload for MQTT.
	assert.NotContains(t, string(data), "\n")
}
