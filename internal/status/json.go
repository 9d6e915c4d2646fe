package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Reading       *ReadingJSON `json:"reading,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Connected     bool         `json:"connected"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Uplink        UplinkJSON   `json:"uplink"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is the JSON representation of the latest reading.
type ReadingJSON struct {
	Timestamp string  `json:"timestamp"`
	Decibels  float64 `json:"db"`
	Class     string  `json:"class"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// UplinkJSON is the JSON representation of uplink counters.
type UplinkJSON struct {
	Transport string `json:"transport"`
	Host      string `json:"host,omitempty"`
	Issued    int    `json:"issued"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	LastError string `json:"last_error,omitempty"`
}

// CountsJSON is the JSON representation of loop counters.
type CountsJSON struct {
	Cycles        int `json:"cycles"`
	AcquireErrors int `json:"acquire_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	CycleMs          int64  `json:"cycle_ms"`
	UplinkIntervalMs int64  `json:"uplink_interval_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	HTTPAddr         string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.State
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:         state,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Connected:     snap.Connected,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Uplink: UplinkJSON{
			Transport: snap.Config.Transport,
			Host:      snap.Config.UplinkHost,
			Issued:    snap.Uplink.Issued,
			Delivered: snap.Uplink.Delivered,
			Failed:    snap.Uplink.Failed,
			LastError: snap.Uplink.LastError,
		},
		Counts: CountsJSON{
			Cycles:        snap.Cycles,
			AcquireErrors: snap.AcquireErrors,
		},
		Config: ConfigJSON{
			CycleMs:          snap.Config.CycleMs,
			UplinkIntervalMs: snap.Config.UplinkIntervalMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}

	if snap.HasReading {
		inner.Reading = &ReadingJSON{
			Timestamp: snap.Reading.Time.UTC().Format(time.RFC3339),
			Decibels:  math.Round(snap.Reading.Decibels*100) / 100,
			Class:     string(snap.Reading.Class),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
