package automated

import (
	"fmt"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/control"
	"github.com/holla2040/plantsim/internal/events"
)

// FlowSource is a controllable flow source intended as a valve replacement:
// instead of an opening it ramps a flow setpoint between zero and a maximum.
// For monitoring it reports an equivalent valve position of 0..100 % so the
// same end-switch and trend tooling applies.
type FlowSource struct {
	name     string
	value    *control.Setpoint
	monitor  *Monitor
	recorder Recorder

	maxFlow float64
}

// NewFlowSource creates a flow source with the default characteristic of
// 80 units maximum flow reached in 4 s.
func NewFlowSource(name string) *FlowSource {
	sp, err := control.NewSetpoint(name, 20, 0, 80)
	if err != nil {
		panic(err) // static defaults are valid
	}
	return &FlowSource{
		name:    name,
		value:   sp,
		monitor: NewMonitor(name),
		maxFlow: 80,
	}
}

// Name returns the source name used for command matching.
func (f *FlowSource) Name() string { return f.name }

// SetRecorder attaches the recorder receiving the equivalent position.
func (f *FlowSource) SetRecorder(r Recorder) { f.recorder = r }

// SetEventQueue attaches the queue receiving end-switch events.
func (f *FlowSource) SetEventQueue(q *events.Queue) { f.monitor.SetEventQueue(q) }

// InitCharacteristic sets the maximum flow and the travel time from zero to
// maximum flow.
func (f *FlowSource) InitCharacteristic(maxFlow, travelTime float64) error {
	if maxFlow <= 0 {
		return fmt.Errorf("flow source %s: max flow must be positive, got %g", f.name, maxFlow)
	}
	if travelTime <= 0 {
		return fmt.Errorf("flow source %s: travel time must be positive, got %g", f.name, travelTime)
	}
	if err := f.value.Ramp().SetBounds(0, maxFlow); err != nil {
		return err
	}
	if err := f.value.Ramp().SetRate(maxFlow / travelTime); err != nil {
		return err
	}
	f.maxFlow = maxFlow
	return nil
}

// InitFlow forces the initial flow, bypassing rate limiting.
func (f *FlowSource) InitFlow(flow float64) { f.value.ForceValue(flow) }

// Flow returns the current source flow.
func (f *FlowSource) Flow() float64 { return f.value.Value() }

// MaxFlow drives the source toward its maximum flow.
func (f *FlowSource) MaxFlow() { f.value.Ramp().DriveToMax() }

// MinFlow drives the source toward zero flow.
func (f *FlowSource) MinFlow() { f.value.Ramp().DriveToMin() }

// HoldFlow freezes the flow at its current value.
func (f *FlowSource) HoldFlow() { f.value.Ramp().Hold() }

// HandleCommand consumes switch and boolean commands addressed to this
// source, mirroring the valve command shapes.
func (f *FlowSource) HandleCommand(cmd command.Command) bool {
	if cmd.Target != f.name {
		return false
	}
	switch cmd.Kind {
	case command.KindSwitch:
		switch cmd.Switch {
		case -1:
			f.MinFlow()
		case +1:
			f.MaxFlow()
		default:
			f.HoldFlow()
		}
	case command.KindSet:
		if cmd.Set {
			f.MaxFlow()
		} else {
			f.MinFlow()
		}
	default:
		return false
	}
	return true
}

// Step advances the flow setpoint and reports the equivalent position.
func (f *FlowSource) Step(dt float64) {
	f.value.Step(dt)

	position := f.value.Value() / f.maxFlow * 100
	if f.recorder != nil {
		f.recorder.RecordValue(f.name, position)
	}
	f.monitor.Update(position)
}
