package uplink

import (
	"context"

	"github.com/sweeney/sound-monitor/internal/loudness"
	"github.com/sweeney/sound-monitor/internal/mqtt"
)

// MQTT delivers readings through a Publisher. The publisher owns the broker
// connection, so a job is a single send step.
type MQTT struct {
	pub mqtt.Publisher
}

// NewMQTT creates an MQTT transport.
func NewMQTT(pub mqtt.Publisher) *MQTT {
	return &MQTT{pub: pub}
}

// Name implements Transport.
func (m *MQTT) Name() string { return "mqtt" }

// Plan implements Transport.
func (m *MQTT) Plan(r loudness.Reading) Plan {
	return Plan{Steps: []Step{{
		Stage: StageSending,
		Run: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return m.pub.PublishReading(r)
		},
	}}}
}
