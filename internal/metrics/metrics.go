// Package metrics exposes daemon counters and gauges in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// Uplink job results used as the "result" label.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	decibels        prometheus.Gauge
	filteredVoltage prometheus.Gauge
	class           *prometheus.GaugeVec
	state           *prometheus.GaugeVec
	connected       prometheus.Gauge
	cycles          prometheus.Counter
	acquireErrors   prometheus.Counter
	uplinkJobs      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		decibels: f.NewGauge(prometheus.GaugeOpts{
			Name: "sound_monitor_level_decibels",
			Help: "Most recent sound level in dB",
		}),
		filteredVoltage: f.NewGauge(prometheus.GaugeOpts{
			Name: "sound_monitor_filtered_voltage_volts",
			Help: "Most recent smoothed microphone voltage",
		}),
		class: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sound_monitor_level_class",
			Help: "1 for the loudness class of the most recent reading, 0 otherwise",
		}, []string{"class"}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sound_monitor_device_state",
			Help: "1 for the current device state, 0 otherwise",
		}, []string{"state"}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "sound_monitor_network_connected",
			Help: "1 when the telemetry network is connected",
		}),
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "sound_monitor_cycles_total",
			Help: "Total number of completed measurement cycles",
		}),
		acquireErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "sound_monitor_acquire_errors_total",
			Help: "Total number of failed sample acquisitions",
		}),
		uplinkJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_monitor_uplink_jobs_total",
			Help: "Total number of finished uplink jobs by result",
		}, []string{"result"}),
	}

	for _, c := range loudness.Classes {
		m.class.WithLabelValues(string(c)).Set(0)
	}
	m.uplinkJobs.WithLabelValues(ResultDelivered)
	m.uplinkJobs.WithLabelValues(ResultFailed)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveReading records a completed measurement cycle.
func (m *Metrics) ObserveReading(r loudness.Reading) {
	m.decibels.Set(r.Decibels)
	m.filteredVoltage.Set(r.FilteredPower)
	for _, c := range loudness.Classes {
		v := 0.0
		if c == r.Class {
			v = 1
		}
		m.class.WithLabelValues(string(c)).Set(v)
	}
	m.cycles.Inc()
}

// SetState marks state as the current device state among states.
func (m *Metrics) SetState(state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

// SetConnected records the telemetry network status.
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// IncAcquireError counts a failed acquisition.
func (m *Metrics) IncAcquireError() {
	m.acquireErrors.Inc()
}

// ObserveUplink counts a finished uplink job.
func (m *Metrics) ObserveUplink(delivered bool) {
	if delivered {
		m.uplinkJobs.WithLabelValues(ResultDelivered).Inc()
		return
	}
	m.uplinkJobs.WithLabelValues(ResultFailed).Inc()
}
