// Package automated provides the actuated-equipment models of the simulator:
// motor-driven valves with safety interlocks, a cascaded-controller valve, a
// controllable flow source, and the pump assembly with its startup/shutdown
// sequencer. All components advance on Step calls from the plant loop;
// safety signals arrive as explicit per-step inputs.
package automated

import "github.com/holla2040/plantsim/internal/events"

// Recorder receives named outputs once per step. The telemetry recorder
// implements it; nil disables recording.
type Recorder interface {
	RecordValue(name string, v float64)
	RecordFlag(name string, v bool)
}

// Boundary positions for the end-switch signals, in percent opening.
const (
	closedBoundary = 5.0
	openedBoundary = 95.0
)

// Monitor watches an actuator position and emits edge-triggered end-switch
// events: <name>_Closed when the position crosses the closed boundary and
// <name>_Opened when it crosses the opened boundary. The first observed
// position establishes the baseline without emitting.
type Monitor struct {
	name  string
	queue *events.Queue

	primed bool
	closed bool
	opened bool
}

// NewMonitor creates a monitor emitting under the given component name.
func NewMonitor(name string) *Monitor {
	return &Monitor{name: name}
}

// SetName changes the component name used in emitted event names.
func (m *Monitor) SetName(name string) { m.name = name }

// SetEventQueue attaches the queue receiving boundary events.
func (m *Monitor) SetEventQueue(q *events.Queue) { m.queue = q }

// Update samples the actuator position and emits boundary-crossing events.
func (m *Monitor) Update(opening float64) {
	closed := opening <= closedBoundary
	opened := opening >= openedBoundary

	if !m.primed {
		m.primed = true
		m.closed = closed
		m.opened = opened
		return
	}

	if closed != m.closed {
		m.queue.Publish(events.Event{Name: m.name + "_Closed", Old: m.closed, New: closed})
		m.closed = closed
	}
	if opened != m.opened {
		m.queue.Publish(events.Event{Name: m.name + "_Opened", Old: m.opened, New: opened})
		m.opened = opened
	}
}

// Closed reports whether the last sampled position was at or below the
// closed boundary.
func (m *Monitor) Closed() bool { return m.closed }

// Opened reports whether the last sampled position was at or above the
// opened boundary.
func (m *Monitor) Opened() bool { return m.opened }
