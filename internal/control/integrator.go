package control

import "fmt"

// Integrator is a discrete-time integrating element with output limitation.
// Each step the input is accumulated scaled by the integral time constant:
// output += input * dt / ti, clamped to the output bounds.
type Integrator struct {
	input  float64
	output float64

	min float64
	max float64
	ti  float64
}

// NewIntegrator creates an integrator with bounds [0, 100] and an integral
// time constant of 10 s.
func NewIntegrator() *Integrator {
	return &Integrator{min: 0, max: 100, ti: 10.0}
}

// SetInput sets the value to be integrated.
func (i *Integrator) SetInput(u float64) { i.input = u }

// Input returns the current input value.
func (i *Integrator) Input() float64 { return i.input }

// Output returns the integrated, clamped output.
func (i *Integrator) Output() float64 { return i.output }

// ForceOutput overrides the accumulated output, clamped to the bounds.
// Intended for initial conditions.
func (i *Integrator) ForceOutput(v float64) { i.output = clamp(v, i.min, i.max) }

// SetIntegralTime sets the integral time constant in seconds. Must be positive.
func (i *Integrator) SetIntegralTime(ti float64) error {
	if ti <= 0 {
		return fmt.Errorf("integral time must be positive, got %g", ti)
	}
	i.ti = ti
	return nil
}

// SetBounds sets the output limits.
func (i *Integrator) SetBounds(min, max float64) error {
	if min >= max {
		return fmt.Errorf("integrator bounds invalid: min %g must be below max %g", min, max)
	}
	i.min = min
	i.max = max
	i.output = clamp(i.output, min, max)
	return nil
}

// Step advances the integrator by dt seconds.
func (i *Integrator) Step(dt float64) {
	i.output = clamp(i.output+i.input*dt/i.ti, i.min, i.max)
}
