// Package control provides the discrete-time control elements of the
// simulator: a rate-limited ramp generator, a PI controller with anti-windup
// and bumpless manual/automatic transfer, a bounded integrator, and a named
// setpoint. All elements advance on an explicit Step(dt) call driven by the
// plant loop; none of them block or perform I/O.
package control

// Mode selects how a controller produces its output. Manual and Automatic are
// the two persistent modes; the Output* values are transient operator
// overrides used by controlled valves (press-and-hold open/close buttons that
// temporarily force manual and restore automatic on release).
type Mode int

const (
	Manual Mode = iota
	Automatic
	OutputIncrease
	OutputDecrease
	OutputContinue
)

// String returns the human-readable name for a mode.
func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Automatic:
		return "automatic"
	case OutputIncrease:
		return "output-increase"
	case OutputDecrease:
		return "output-decrease"
	case OutputContinue:
		return "output-continue"
	default:
		return "unknown"
	}
}
