package automated

import (
	"fmt"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/control"
	"github.com/holla2040/plantsim/internal/events"
)

// Default actuator travel for automated valves: 25 %/s within [-5, 100].
// The slight negative lower bound lets the actuator model seat hysteresis
// margins below the fully closed position.
const (
	valveRate       = 25.0
	valveLowerLimit = -5.0
	valveUpperLimit = 100.0
)

// Safety carries the per-step interlock inputs of a valve. A false Close
// forces the valve toward its minimum regardless of commands; otherwise a
// false Open forces it toward its maximum. Both true is permissive.
type Safety struct {
	Close bool
	Open  bool
}

// Permissive returns the default safety inputs: no interlock active.
func Permissive() Safety { return Safety{Close: true, Open: true} }

// Valve is a motor-driven automated valve: a rate-limited actuator with two
// independent safety interlocks, momentary/boolean/numeric operator commands,
// and an end-switch monitor. The valve's flow characteristic is held for the
// external physics collaborator; no flow is computed here.
type Valve struct {
	name     string
	ramp     *control.RampGenerator
	monitor  *Monitor
	recorder Recorder
	queue    *events.Queue

	resistanceFullOpen float64
	leakageFactor      float64
}

// NewValve creates a valve with the default actuator travel, fully closed.
func NewValve(name string) *Valve {
	ramp, err := control.NewRampGenerator(valveRate, valveLowerLimit, valveUpperLimit)
	if err != nil {
		panic(err) // static defaults are valid
	}
	ramp.ForceOutput(0)
	return &Valve{
		name:    name,
		ramp:    ramp,
		monitor: NewMonitor(name),
	}
}

// Name returns the valve name used for command matching.
func (v *Valve) Name() string { return v.name }

// SetRecorder attaches the recorder receiving the opening each step.
func (v *Valve) SetRecorder(r Recorder) { v.recorder = r }

// SetEventQueue attaches the queue receiving end-switch events.
func (v *Valve) SetEventQueue(q *events.Queue) {
	v.queue = q
	v.monitor.SetEventQueue(q)
}

// InitCharacteristic sets the valve's flow characteristic for the physics
// collaborator. resistanceFullOpen is the flow resistance at 100 % opening;
// a leakageFactor above 1.0 models an imperfectly seating valve, values at
// or below 1.0 select the default tight-closing behavior.
func (v *Valve) InitCharacteristic(resistanceFullOpen, leakageFactor float64) error {
	if resistanceFullOpen <= 0 {
		return fmt.Errorf("valve %s: full-open resistance must be positive, got %g", v.name, resistanceFullOpen)
	}
	v.resistanceFullOpen = resistanceFullOpen
	if leakageFactor > 1.0 {
		v.leakageFactor = leakageFactor
	} else {
		v.leakageFactor = 0
	}
	return nil
}

// ResistanceFullOpen returns the configured full-open flow resistance.
func (v *Valve) ResistanceFullOpen() float64 { return v.resistanceFullOpen }

// LeakageFactor returns the configured leakage factor, 0 for tight closing.
func (v *Valve) LeakageFactor() float64 { return v.leakageFactor }

// InitOpening forces the actuator position, bypassing rate limiting. When the
// valve starts in a not-closed position the corresponding end-switch signal
// is announced so attached listeners start from the correct state.
func (v *Valve) InitOpening(opening float64) {
	v.ramp.ForceOutput(opening)
	if opening > closedBoundary {
		v.queue.Publish(events.Event{Name: v.name + "_Closed", Old: nil, New: false})
	}
}

// Opening returns the current actuator position in percent.
func (v *Valve) Opening() float64 { return v.ramp.Output() }

// Ramp exposes the actuator generator for configuration.
func (v *Valve) Ramp() *control.RampGenerator { return v.ramp }

// Monitor exposes the end-switch monitor.
func (v *Valve) Monitor() *Monitor { return v.monitor }

// Open drives the valve toward fully open.
func (v *Valve) Open() { v.ramp.DriveToMax() }

// Close drives the valve toward fully closed.
func (v *Valve) Close() { v.ramp.DriveToMin() }

// Stop holds the valve at its current position.
func (v *Valve) Stop() { v.ramp.Hold() }

// SetOpening moves the valve toward a numeric opening target.
func (v *Valve) SetOpening(opening float64) { v.ramp.SetTarget(opening) }

// HandleCommand consumes commands addressed to this valve by exact name.
// Momentary switches send +1/-1 while pressed and 0 on release; booleans
// select fully open or fully closed; numeric commands set an opening target.
func (v *Valve) HandleCommand(cmd command.Command) bool {
	if cmd.Target != v.name {
		return false
	}
	switch cmd.Kind {
	case command.KindSwitch:
		switch cmd.Switch {
		case -1:
			v.Close()
		case +1:
			v.Open()
		default:
			v.Stop()
		}
	case command.KindSet:
		if cmd.Set {
			v.Open()
		} else {
			v.Close()
		}
	case command.KindOpening:
		v.SetOpening(cmd.Opening)
	default:
		return false
	}
	return true
}

// Step samples the safety inputs, advances the actuator, and updates the
// monitor and recorder. An active interlock overrides any pending command
// for as long as it persists.
func (v *Valve) Step(dt float64, safe Safety) {
	if !safe.Close {
		v.ramp.DriveToMin()
	} else if !safe.Open {
		v.ramp.DriveToMax()
	}

	v.ramp.Step(dt)
	v.monitor.Update(v.ramp.Output())

	if v.recorder != nil {
		v.recorder.RecordValue(v.name, v.ramp.Output())
	}
}
