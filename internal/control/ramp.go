package control

import "fmt"

// rampDrive is the current directional intent of a RampGenerator.
type rampDrive int

const (
	driveHold rampDrive = iota
	driveUp
	driveDown
	driveTarget
)

// RampGenerator produces a bounded, rate-limited output. It mimics the
// behavior of a motor-driven actuator: directional commands move the output
// toward a bound at a fixed rate, a numeric target moves it toward that value
// at the same rate, and the output saturates exactly at its limits with no
// overshoot regardless of step size.
type RampGenerator struct {
	output float64
	rate   float64
	lower  float64
	upper  float64

	drive  rampDrive
	target float64
}

// NewRampGenerator creates a generator with the given rate (units per second)
// and output bounds. The output starts at the lower bound.
func NewRampGenerator(rate, lower, upper float64) (*RampGenerator, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("ramp rate must be positive, got %g", rate)
	}
	if lower >= upper {
		return nil, fmt.Errorf("ramp bounds invalid: lower %g must be below upper %g", lower, upper)
	}
	return &RampGenerator{
		output: lower,
		rate:   rate,
		lower:  lower,
		upper:  upper,
	}, nil
}

// DriveToMax moves the output toward the upper bound at the configured rate.
func (r *RampGenerator) DriveToMax() { r.drive = driveUp }

// DriveToMin moves the output toward the lower bound at the configured rate.
func (r *RampGenerator) DriveToMin() { r.drive = driveDown }

// Hold freezes the output at its current value.
func (r *RampGenerator) Hold() { r.drive = driveHold }

// SetTarget moves the output toward v at the configured rate. The target is
// not clamped here; the output still never leaves the bounds.
func (r *RampGenerator) SetTarget(v float64) {
	r.drive = driveTarget
	r.target = v
}

// ForceOutput overrides the output immediately, bypassing rate limiting, and
// freezes the drive. Intended for setting initial conditions only. The value
// is clamped to the bounds.
func (r *RampGenerator) ForceOutput(v float64) {
	r.output = clamp(v, r.lower, r.upper)
	r.drive = driveHold
}

// Step advances the output by up to rate*dt in the commanded direction,
// saturating exactly at the bounds or at the target.
func (r *RampGenerator) Step(dt float64) {
	maxDelta := r.rate * dt

	switch r.drive {
	case driveUp:
		r.output += maxDelta
	case driveDown:
		r.output -= maxDelta
	case driveTarget:
		diff := r.target - r.output
		switch {
		case diff > maxDelta:
			r.output += maxDelta
		case diff < -maxDelta:
			r.output -= maxDelta
		default:
			r.output = r.target
		}
	}

	r.output = clamp(r.output, r.lower, r.upper)
}

// Output returns the current output value.
func (r *RampGenerator) Output() float64 { return r.output }

// Rate returns the configured rate in units per second.
func (r *RampGenerator) Rate() float64 { return r.rate }

// Bounds returns the lower and upper output limits.
func (r *RampGenerator) Bounds() (lower, upper float64) { return r.lower, r.upper }

// SetRate changes the ramp rate. Effective from the next Step.
func (r *RampGenerator) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("ramp rate must be positive, got %g", rate)
	}
	r.rate = rate
	return nil
}

// SetBounds changes the output limits. The current output is re-clamped.
func (r *RampGenerator) SetBounds(lower, upper float64) error {
	if lower >= upper {
		return fmt.Errorf("ramp bounds invalid: lower %g must be below upper %g", lower, upper)
	}
	r.lower = lower
	r.upper = upper
	r.output = clamp(r.output, lower, upper)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
