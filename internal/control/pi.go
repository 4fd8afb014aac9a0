package control

import (
	"fmt"

	"github.com/holla2040/plantsim/internal/events"
)

// PIController is a proportional-integral controller with output limitation
// and limit feedback into the integral term (anti-windup). While not in
// automatic mode the integral accumulator is recomputed every step so that
// the output exactly tracks the follow-up value, giving a bumpless transfer
// back to automatic.
//
// Because the limited integral can hold the output down while the error is
// still recovering, a controller driving a valve position is typically given
// a slightly negative minimum output (for example -1) so it can run negative
// on purpose and reopen without delay.
type PIController struct {
	err      float64
	followUp float64
	output   float64

	min float64
	max float64

	gain         float64
	integralTime float64

	integral       float64
	stopIntegrator bool

	mode     Mode
	prevMode Mode

	name  string
	queue *events.Queue
}

// NewPIController creates a controller in manual mode with gain 1, integral
// time 10 s, and output bounds [0, 100].
func NewPIController() *PIController {
	return &PIController{
		min:          0,
		max:          100,
		gain:         1.0,
		integralTime: 10.0,
		mode:         Manual,
		prevMode:     Manual,
		name:         "unnamed",
	}
}

// SetName sets the controller name used in emitted events.
func (c *PIController) SetName(name string) { c.name = name }

// SetEventQueue attaches the queue that receives mode-change events.
func (c *PIController) SetEventQueue(q *events.Queue) { c.queue = q }

// SetError sets the control difference input for the next step.
func (c *PIController) SetError(e float64) { c.err = e }

// Error returns the current control difference input.
func (c *PIController) Error() float64 { return c.err }

// SetFollowUp provides the value the output must track while the controller
// is not in automatic mode. For simple loops this is the actuator position
// itself.
func (c *PIController) SetFollowUp(v float64) { c.followUp = v }

// FollowUp returns the current follow-up value.
func (c *PIController) FollowUp() float64 { return c.followUp }

// Output returns the controller output computed by the last step.
func (c *PIController) Output() float64 { return c.output }

// Mode returns the current controller mode.
func (c *PIController) Mode() Mode { return c.mode }

// SetManual switches between manual (true) and automatic (false) operation.
// The switch takes effect on the next step.
func (c *PIController) SetManual(manual bool) {
	if manual {
		c.mode = Manual
	} else {
		c.mode = Automatic
	}
}

// IsManual reports whether the controller is in any non-automatic mode.
func (c *PIController) IsManual() bool { return c.mode != Automatic }

// SetGain sets the proportional gain. Must be positive.
func (c *PIController) SetGain(k float64) error {
	if k <= 0 {
		return fmt.Errorf("controller gain must be positive, got %g", k)
	}
	c.gain = k
	return nil
}

// Gain returns the proportional gain.
func (c *PIController) Gain() float64 { return c.gain }

// SetIntegralTime sets the integral time constant in seconds. The integral
// part reaches gain times the error after this time. Must be positive.
func (c *PIController) SetIntegralTime(tn float64) error {
	if tn <= 0 {
		return fmt.Errorf("integral time must be positive, got %g", tn)
	}
	c.integralTime = tn
	return nil
}

// IntegralTime returns the integral time constant in seconds.
func (c *PIController) IntegralTime() float64 { return c.integralTime }

// SetOutputBounds sets the output limits. The default is [0, 100].
func (c *PIController) SetOutputBounds(min, max float64) error {
	if min >= max {
		return fmt.Errorf("output bounds invalid: min %g must be below max %g", min, max)
	}
	c.min = min
	c.max = max
	return nil
}

// SetStopIntegrator freezes (true) or releases (false) the integral part.
func (c *PIController) SetStopIntegrator(stop bool) { c.stopIntegrator = stop }

// StopIntegrator reports whether the integral part is frozen.
func (c *PIController) StopIntegrator() bool { return c.stopIntegrator }

// Step advances the controller by dt seconds. It never fails; all arithmetic
// paths are clamped. A mode-change event is emitted exactly on the step where
// the mode differs from the previous step.
func (c *PIController) Step(dt float64) {
	if c.mode != c.prevMode {
		c.queue.Publish(events.Event{
			Name: c.name + "ControlState",
			Old:  c.prevMode.String(),
			New:  c.mode.String(),
		})
		c.prevMode = c.mode
	}

	var integralDelta float64
	if !c.stopIntegrator && c.mode == Automatic {
		integralDelta = c.err * c.gain * dt / c.integralTime
	}

	proportional := c.err * c.gain

	// Outside automatic mode the accumulator is set so the sum matches the
	// follow-up exactly, which makes the later transfer to automatic bumpless.
	if c.mode != Automatic {
		c.integral = c.followUp - proportional
	}

	integralPart := c.integral + integralDelta
	sum := integralPart + proportional

	// Anti-windup: when the sum would exceed a limit, the integral is pulled
	// back so the controller does not run away while saturated.
	switch {
	case sum > c.max:
		c.output = c.max
		c.integral = c.max - proportional
	case sum < c.min:
		c.output = c.min
		c.integral = c.min - proportional
	default:
		c.output = sum
		c.integral = integralPart
	}

	if c.mode != Automatic {
		c.output = c.followUp
	}
}
