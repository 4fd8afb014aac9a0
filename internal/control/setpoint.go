package control

import "github.com/holla2040/plantsim/internal/command"

// ValueRecorder receives named numeric outputs once per step. The telemetry
// recorder implements it; a nil recorder disables recording.
type ValueRecorder interface {
	RecordValue(name string, v float64)
}

// Setpoint is a named ramp generator whose value is changed with momentary
// increase/decrease/stop commands and pushed to a value recorder every step.
// It is used where an operator dials in a target value rather than driving an
// actuator, such as a flow or temperature setpoint.
type Setpoint struct {
	ramp     *RampGenerator
	name     string
	recorder ValueRecorder
}

// NewSetpoint creates a named setpoint with the given rate and bounds.
func NewSetpoint(name string, rate, lower, upper float64) (*Setpoint, error) {
	ramp, err := NewRampGenerator(rate, lower, upper)
	if err != nil {
		return nil, err
	}
	return &Setpoint{ramp: ramp, name: name}, nil
}

// Name returns the setpoint name used for command matching and recording.
func (s *Setpoint) Name() string { return s.name }

// SetRecorder attaches the recorder that receives the value each step.
func (s *Setpoint) SetRecorder(r ValueRecorder) { s.recorder = r }

// Value returns the current setpoint value.
func (s *Setpoint) Value() float64 { return s.ramp.Output() }

// ForceValue overrides the value immediately. Intended for initialization.
func (s *Setpoint) ForceValue(v float64) { s.ramp.ForceOutput(v) }

// Ramp exposes the underlying generator for configuration.
func (s *Setpoint) Ramp() *RampGenerator { return s.ramp }

// HandleCommand consumes tri-state switch commands addressed to this
// setpoint: +1 raises, -1 lowers, 0 stops.
func (s *Setpoint) HandleCommand(cmd command.Command) bool {
	if cmd.Target != s.name || cmd.Kind != command.KindSwitch {
		return false
	}
	switch cmd.Switch {
	case 1:
		s.ramp.DriveToMax()
	case -1:
		s.ramp.DriveToMin()
	default:
		s.ramp.Hold()
	}
	return true
}

// Step advances the value and records it.
func (s *Setpoint) Step(dt float64) {
	s.ramp.Step(dt)
	if s.recorder != nil {
		s.recorder.RecordValue(s.name, s.ramp.Output())
	}
}
