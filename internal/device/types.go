// Package device contains the on/off state machine that sequences the
// actuators, connectivity and the measurement loop. All hardware is reached
// through interfaces and all delays go through a clock.Clock.
package device

import (
	"fmt"
	"time"

	"github.com/sweeney/sound-monitor/internal/loudness"
	"github.com/sweeney/sound-monitor/internal/network"
)

// State is the device's operating state.
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

// States lists every state in lifecycle order.
var States = []State{Idle, Starting, Running, Stopping}

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StateNames returns the names of States, in order.
func StateNames() []string {
	names := make([]string, len(States))
	for i, s := range States {
		names[i] = s.String()
	}
	return names
}

// Event is a user request decoded from the buttons.
type Event int

const (
	EventNone Event = iota
	EventStart
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "NONE"
	case EventStart:
		return "START"
	case EventStop:
		return "STOP"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Context is the mutable state owned by a Machine.
type Context struct {
	State        State
	Connectivity network.Status
	// Reading is the most recent reading; valid when HasReading is set.
	Reading    loudness.Reading
	HasReading bool
}

// Sequence timing.
const (
	IdlePoll          = 100 * time.Millisecond
	ProgressFrames    = 10
	ProgressFrameHold = 200 * time.Millisecond
	ReadyHold         = 500 * time.Millisecond
	CycleInterval     = 1 * time.Second
	ShutdownLoops     = 2
	ShutdownDots      = 3
	ShutdownFrameHold = 520 * time.Millisecond
)
