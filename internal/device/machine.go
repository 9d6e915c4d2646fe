package device

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/sound-monitor/internal/adc"
	"github.com/sweeney/sound-monitor/internal/clock"
	"github.com/sweeney/sound-monitor/internal/display"
	"github.com/sweeney/sound-monitor/internal/gpio"
	"github.com/sweeney/sound-monitor/internal/led"
	"github.com/sweeney/sound-monitor/internal/loudness"
	"github.com/sweeney/sound-monitor/internal/metrics"
	"github.com/sweeney/sound-monitor/internal/network"
	"github.com/sweeney/sound-monitor/internal/status"
	"github.com/sweeney/sound-monitor/internal/uplink"
)

// Connector brings telemetry connectivity up and down.
type Connector interface {
	Connect(ctx context.Context) (network.Status, error)
	Disconnect() error
}

// Uplink schedules telemetry jobs.
type Uplink interface {
	Check(r loudness.Reading, st network.Status, now time.Time) bool
	Poll()
	Abort()
	Stats() uplink.Stats
}

// Deps are the collaborators of a Machine. Tracker and Metrics are optional.
type Deps struct {
	Input    gpio.Reader
	Sampler  adc.Sampler
	Display  display.Display
	Strip    led.Strip
	LEDCount int
	Network  Connector
	Uplink   Uplink
	Clock    clock.Clock
	Log      zerolog.Logger
	Debounce time.Duration

	Tracker *status.Tracker
	Metrics *metrics.Metrics
}

// Machine is the device state machine. It is driven from a single goroutine.
type Machine struct {
	d     Deps
	ctx   Context
	input *InputDecoder
	proc  *loudness.Processor

	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State)
}

// New creates a Machine in Idle.
func New(d Deps) *Machine {
	if d.LEDCount == 0 {
		d.LEDCount = led.Count
	}
	m := &Machine{
		d:     d,
		ctx:   Context{State: Idle},
		input: NewInputDecoder(d.Debounce),
		proc:  loudness.NewProcessor(),
	}
	m.publishState()
	return m
}

// Context returns a copy of the machine's context.
func (m *Machine) Context() Context { return m.ctx }

// State returns the current state.
func (m *Machine) State() State { return m.ctx.State }

// Handle applies an event. Start is honoured only in Idle and Stop only in
// Running; anything else is ignored. It reports whether the state changed.
func (m *Machine) Handle(ev Event) bool {
	switch {
	case ev == EventStart && m.ctx.State == Idle:
		m.transition(Starting)
	case ev == EventStop && m.ctx.State == Running:
		m.transition(Stopping)
	default:
		return false
	}
	return true
}

// Step performs one unit of work for the current state. Starting and
// Stopping run their whole sequence in one step.
func (m *Machine) Step(ctx context.Context) {
	switch m.ctx.State {
	case Idle:
		if m.Handle(m.poll()) {
			return
		}
		m.d.Clock.Sleep(IdlePoll)
	case Starting:
		m.start(ctx)
	case Running:
		if m.Handle(m.poll()) {
			return
		}
		begun := m.d.Clock.Now()
		m.cycle()
		m.pace(begun)
	case Stopping:
		m.stop()
	}
}

// Run steps the machine until ctx is cancelled. A running device is shut
// down cleanly before Run returns.
func (m *Machine) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			switch m.ctx.State {
			case Starting:
				// Nothing has been shown or connected yet.
				m.transition(Idle)
			case Running:
				m.transition(Stopping)
				m.stop()
			case Stopping:
				m.stop()
			}
			return nil
		}
		m.Step(ctx)
	}
}

func (m *Machine) poll() Event {
	start, stop, err := m.d.Input.Read()
	if err != nil {
		m.d.Log.Warn().Err(err).Msg("gpio read error")
		return EventNone
	}
	ev := m.input.Decode(Input{Start: start, Stop: stop, Time: m.d.Clock.Now()})
	if ev != EventNone {
		m.d.Log.Info().Stringer("event", ev).Stringer("state", m.ctx.State).Msg("button event")
	}
	return ev
}

func (m *Machine) transition(to State) {
	from := m.ctx.State
	m.ctx.State = to
	m.d.Log.Info().Stringer("from", from).Stringer("to", to).Msg("state change")
	m.publishState()
	if m.OnTransition != nil {
		m.OnTransition(from, to)
	}
}

func (m *Machine) publishState() {
	if m.d.Tracker != nil {
		m.d.Tracker.SetState(m.ctx.State.String())
	}
	if m.d.Metrics != nil {
		m.d.Metrics.SetState(m.ctx.State.String(), StateNames())
	}
}

func (m *Machine) setConnectivity(st network.Status) {
	m.ctx.Connectivity = st
	if m.d.Tracker != nil {
		m.d.Tracker.SetConnected(st.Connected)
	}
	if m.d.Metrics != nil {
		m.d.Metrics.SetConnected(st.Connected)
	}
}

// start runs the startup animation and the connectivity attempt, then
// enters Running whatever the outcome.
func (m *Machine) start(ctx context.Context) {
	for i := 1; i <= ProgressFrames; i++ {
		m.warn(display.Progress(m.d.Display, i*100/ProgressFrames), "draw progress")
		m.d.Clock.Sleep(ProgressFrameHold)
	}
	m.warn(display.Ready(m.d.Display), "draw ready")
	m.d.Clock.Sleep(ReadyHold)

	st, err := m.d.Network.Connect(ctx)
	if err != nil {
		m.d.Log.Warn().Err(err).Msg("running without network, uplink disabled")
	}
	m.setConnectivity(st)
	m.transition(Running)
}

// cycle is one measurement pass: service the uplink, acquire, process,
// actuate, then offer the reading to the uplink.
func (m *Machine) cycle() {
	m.d.Uplink.Poll()

	buf, err := m.d.Sampler.Acquire()
	if err != nil {
		m.d.Log.Error().Err(err).Msg("acquire failed, skipping cycle")
		if m.d.Tracker != nil {
			m.d.Tracker.RecordAcquireError()
		}
		if m.d.Metrics != nil {
			m.d.Metrics.IncAcquireError()
		}
		return
	}

	now := m.d.Clock.Now()
	r := m.proc.Process(buf[:], now)
	m.ctx.Reading = r
	m.ctx.HasReading = true

	m.warn(display.ShowReading(m.d.Display, r), "draw reading")
	m.warn(led.ShowClass(m.d.Strip, m.d.LEDCount, r.Class), "write leds")

	m.d.Uplink.Check(r, m.ctx.Connectivity, now)

	m.d.Log.Debug().
		Float64("db", r.Decibels).
		Float64("raw_power", r.RawPower).
		Float64("filtered_voltage", r.FilteredPower).
		Str("class", string(r.Class)).
		Msg("reading")

	if m.d.Tracker != nil {
		m.d.Tracker.RecordReading(r)
		st := m.d.Uplink.Stats()
		m.d.Tracker.SetUplink(status.UplinkStats{
			Issued:    st.Issued,
			Delivered: st.Delivered,
			Failed:    st.Failed,
			LastError: st.LastError,
		})
	}
	if m.d.Metrics != nil {
		m.d.Metrics.ObserveReading(r)
	}
}

// pace holds the running loop to one cycle per CycleInterval, measured from
// the start of the cycle. An overrunning cycle is followed by the next at once.
func (m *Machine) pace(begun time.Time) {
	if took := m.d.Clock.Since(begun); took > CycleInterval {
		m.d.Log.Warn().Dur("took", took).Dur("interval", CycleInterval).Msg("cycle overran interval")
	}
	m.d.Clock.SleepUntil(begun.Add(CycleInterval))
}

// stop runs the shutdown animation, darkens the actuators and releases the
// network, then returns to Idle.
func (m *Machine) stop() {
	for loop := 0; loop < ShutdownLoops; loop++ {
		for dots := 1; dots <= ShutdownDots; dots++ {
			m.warn(display.ShuttingDown(m.d.Display, dots), "draw shutdown")
			m.d.Clock.Sleep(ShutdownFrameHold)
		}
	}
	m.warn(display.Blank(m.d.Display), "clear display")
	m.warn(led.Clear(m.d.Strip), "clear leds")

	m.d.Uplink.Abort()
	if m.ctx.Connectivity.Connected {
		m.warn(m.d.Network.Disconnect(), "disconnect network")
	}
	m.setConnectivity(network.Status{})
	m.ctx.HasReading = false
	m.transition(Idle)
}

func (m *Machine) warn(err error, what string) {
	if err != nil {
		m.d.Log.Warn().Err(err).Msg(what)
	}
}
