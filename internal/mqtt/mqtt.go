// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// TopicReadings is the MQTT topic for loudness readings.
const TopicReadings = "sound/monitor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sound/monitor/system"

// Publisher publishes readings and lifecycle events to MQTT.
type Publisher interface {
	// PublishReading sends a loudness reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(r loudness.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, state change).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "STATE", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", or the new device state
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ClientID returns a broker client id made unique per process.
func ClientID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// Payload represents the reading message payload structure.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload contains the reading details.
type ReadingPayload struct {
	Timestamp string  `json:"timestamp"`
	Decibels  float64 `json:"db"`
	Class     string  `json:"class"`
	RawPower  float64 `json:"raw_power"`
	Voltage   float64 `json:"filtered_voltage"`
}

// round2 keeps payloads at the precision shown on the display.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(r loudness.Reading) ([]byte, error) {
	payload := Payload{
		Reading: ReadingPayload{
			Timestamp: r.Time.UTC().Format(time.RFC3339),
			Decibels:  round2(r.Decibels),
			Class:     string(r.Class),
			RawPower:  round2(r.RawPower),
			Voltage:   math.Round(r.FilteredPower*1e4) / 1e4,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
