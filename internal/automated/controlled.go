package automated

import (
	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/control"
	"github.com/holla2040/plantsim/internal/events"
)

// ControlledValve is a Valve cascaded with a PI controller for closed-loop
// positioning. While the controller is in automatic mode its output feeds the
// actuator target; the actuator position is fed back as the controller's
// follow-up so manual operation and interlock overrides remain bumpless.
//
// Commands are addressed to <name>ControlCommand and carry mode requests
// only; the plain valve commands are deliberately not accepted, a controlled
// valve is operated through its controller.
type ControlledValve struct {
	Valve
	controller *control.PIController

	commandTarget string
	overrideAuto  bool
}

// NewControlledValve creates a controlled valve with a fresh PI controller.
// The controller minimum is set slightly negative so the limited integral can
// run below zero and reopen the valve without delay after saturation.
func NewControlledValve(name string) *ControlledValve {
	c := control.NewPIController()
	c.SetName(name)
	if err := c.SetOutputBounds(-1.0, 100); err != nil {
		panic(err) // static defaults are valid
	}
	return &ControlledValve{
		Valve:         *NewValve(name),
		controller:    c,
		commandTarget: name + "ControlCommand",
	}
}

// Controller exposes the cascaded PI controller for configuration.
func (cv *ControlledValve) Controller() *control.PIController { return cv.controller }

// SetEventQueue attaches the queue receiving end-switch and mode events.
func (cv *ControlledValve) SetEventQueue(q *events.Queue) {
	cv.Valve.SetEventQueue(q)
	cv.controller.SetEventQueue(q)
}

// HandleCommand consumes mode commands addressed to <name>ControlCommand.
// A momentary output override (increase/decrease) forces manual operation,
// remembering whether automatic was active; the continue command restores it.
func (cv *ControlledValve) HandleCommand(cmd command.Command) bool {
	if cmd.Target != cv.commandTarget || cmd.Kind != command.KindMode {
		return false
	}
	switch cmd.Mode {
	case command.ModeAutomatic:
		cv.controller.SetManual(false)
	case command.ModeManual:
		cv.controller.SetManual(true)
		cv.Valve.Stop()
	case command.ModeOutputIncrease:
		cv.overrideAuto = !cv.controller.IsManual()
		cv.controller.SetManual(true)
		cv.Valve.Open()
	case command.ModeOutputDecrease:
		cv.overrideAuto = !cv.controller.IsManual()
		cv.controller.SetManual(true)
		cv.Valve.Close()
	case command.ModeOutputContinue:
		cv.Valve.Stop()
		if cv.overrideAuto {
			cv.controller.SetManual(false)
			cv.overrideAuto = false
		}
	}
	return true
}

// Step advances the cascade: an active interlock disables automatic mode, the
// controller output (in automatic) becomes the actuator target, the actuator
// advances under the same safety inputs, and the controller finally steps
// with the fresh position as its follow-up. processError is the control
// difference to regulate, sampled by the caller.
func (cv *ControlledValve) Step(dt float64, safe Safety, processError float64) {
	if !safe.Close || !safe.Open {
		cv.controller.SetManual(true)
	}

	if !cv.controller.IsManual() {
		cv.Valve.SetOpening(cv.controller.Output())
	}

	cv.Valve.Step(dt, safe)

	cv.controller.SetError(processError)
	cv.controller.SetFollowUp(cv.Valve.Opening())
	cv.controller.Step(dt)
}
