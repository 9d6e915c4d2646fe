package uplink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// InfluxMeasurement is the measurement name written for each reading.
const InfluxMeasurement = "sound"

// pointWriter is the subset of api.WriteAPIBlocking used here.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Influx writes readings to an InfluxDB v2 bucket.
type Influx struct {
	client influxdb2.Client
	writer pointWriter
	device string
}

// NewInflux creates an Influx transport. Close releases the client.
func NewInflux(url, token, org, bucket, device string) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
		device: device,
	}
}

// Name implements Transport.
func (i *Influx) Name() string { return "influx" }

// Point converts a reading to a line-protocol point.
func (i *Influx) Point(r loudness.Reading) *write.Point {
	return influxdb2.NewPoint(
		InfluxMeasurement,
		map[string]string{"device": i.device},
		map[string]interface{}{
			"db":               r.Decibels,
			"class":            string(r.Class),
			"raw_power":        r.RawPower,
			"filtered_voltage": r.FilteredPower,
		},
		r.Time,
	)
}

// Plan implements Transport.
func (i *Influx) Plan(r loudness.Reading) Plan {
	p := i.Point(r)
	return Plan{Steps: []Step{{
		Stage: StageSending,
		Run: func(ctx context.Context) error {
			if err := i.writer.WritePoint(ctx, p); err != nil {
				return fmt.Errorf("write point: %w", err)
			}
			return nil
		},
	}}}
}

// Close releases the underlying client.
func (i *Influx) Close() {
	if i.client != nil {
		i.client.Close()
	}
}
