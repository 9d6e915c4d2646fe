// Package status provides a thread-safe status tracker for the sound-monitor daemon.
// It is written by the device loop and read by HTTP handlers and heartbeat events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// NetworkInfo contains network state as reported by the board's network
// helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	CycleMs          int64
	UplinkIntervalMs int64
	HeartbeatMs      int64
	Transport        string
	UplinkHost       string
	Broker           string
	HTTPAddr         string
}

// UplinkStats counts telemetry jobs. This is a local copy to avoid
// importing internal/uplink from status.
type UplinkStats struct {
	Issued    int
	Delivered int
	Failed    int
	LastError string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         string
	Reading       loudness.Reading
	HasReading    bool
	Connected     bool
	MQTTConnected bool
	Uplink        UplinkStats
	Cycles        int
	AcquireErrors int
	StartTime     time.Time
	Now           time.Time
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     "IDLE",
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetState records the device state name.
func (t *Tracker) SetState(state string) {
	t.mu.Lock()
	t.snap.State = state
	t.mu.Unlock()
}

// RecordReading stores the latest reading and counts the cycle.
func (t *Tracker) RecordReading(r loudness.Reading) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.HasReading = true
	t.snap.Cycles++
	t.mu.Unlock()
}

// RecordAcquireError counts a failed acquisition burst.
func (t *Tracker) RecordAcquireError() {
	t.mu.Lock()
	t.snap.AcquireErrors++
	t.mu.Unlock()
}

// SetConnected sets the telemetry network status.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.snap.Connected = connected
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetUplink replaces the uplink counters.
func (t *Tracker) SetUplink(stats UplinkStats) {
	t.mu.Lock()
	t.snap.Uplink = stats
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
