package automated

import (
	"fmt"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/events"
)

// PumpState is the externally visible state of a pump assembly.
type PumpState int

const (
	PumpOffline PumpState = iota
	PumpReady
	PumpStartup
	PumpRunning
)

// String returns the human-readable name for a pump state.
func (s PumpState) String() string {
	switch s {
	case PumpOffline:
		return "offline"
	case PumpReady:
		return "ready"
	case PumpStartup:
		return "startup"
	case PumpRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Sequencer timing, in seconds.
const (
	confirmDelay  = 1.5  // dwell before OFFLINE is promoted to READY
	armDelay      = 0.8  // dwell between start command and STARTUP
	startupDelay  = 3.0  // STARTUP duration before the pump energizes
	restartLock   = 30.0 // minimum dwell since the last switch-on before a restart
	pumpValveRate = 15.0 // suction/discharge actuator travel, %/s
)

// Readiness thresholds, in percent opening.
const (
	suctionReadyMin    = 95.0 // suction must be essentially fully open
	dischargeReadyMax  = 1.0  // discharge must be essentially fully closed
	suctionLossMinimum = 20.0 // below this a running pump trips on loss of suction
)

// Pump is an assembly of a pump with suction and discharge valves and the
// startup/shutdown sequencer. The sequencer only permits operations that are
// allowed with such pumps: it confirms readiness with a dwell time, arms and
// energizes on a timed sequence, enforces a restart lock after every
// switch-on, and trips on safety loss or loss of suction.
//
// The internal sequence index 0..5 is distinct from the visible PumpState;
// states 1 and 3 are timing states that are not externally distinguishable.
// All timing uses elapsed-seconds accumulators advanced by the caller's step
// duration, so tests can fast-forward deterministically.
type Pump struct {
	name      string
	suction   *Valve
	discharge *Valve

	queue    *events.Queue
	recorder Recorder

	totalHead           float64
	suctionResistance   float64
	dischargeResistance float64
	effort              float64

	state     PumpState
	prevState PumpState
	seq       int

	stateElapsed  float64
	sinceSwitchOn float64
	hasSwitchOn   bool

	ready bool

	// Discharge opening as seen by the physics collaborator; forced to zero
	// while the pump is not running to model the un-simulated check valve.
	dischargeFlowOpening float64
}

// NewPump creates a pump assembly with closed valves, de-energized, offline.
// The valve actuators travel slower than standalone valves (15 %/s).
func NewPump(name string) *Pump {
	suction := NewValve(name + "SuctionValve")
	discharge := NewValve(name + "DischargeValve")
	if err := suction.Ramp().SetRate(pumpValveRate); err != nil {
		panic(err)
	}
	if err := discharge.Ramp().SetRate(pumpValveRate); err != nil {
		panic(err)
	}
	return &Pump{
		name:      name,
		suction:   suction,
		discharge: discharge,
	}
}

// Name returns the assembly name used as the command prefix.
func (p *Pump) Name() string { return p.name }

// SetRecorder attaches the recorder receiving valve openings and the running
// flag each step.
func (p *Pump) SetRecorder(r Recorder) {
	p.recorder = r
	p.suction.SetRecorder(r)
	p.discharge.SetRecorder(r)
}

// SetEventQueue attaches the queue receiving pump-state and end-switch
// events.
func (p *Pump) SetEventQueue(q *events.Queue) {
	p.queue = q
	p.suction.SetEventQueue(q)
	p.discharge.SetEventQueue(q)
}

// InitCharacteristic derives the assembly's linear characteristic from its
// total head, design working pressure, and design working flow. The derived
// per-valve flow resistances are held for the physics collaborator.
func (p *Pump) InitCharacteristic(totalHead, workingPressure, workingFlow float64) error {
	if workingPressure >= totalHead {
		return fmt.Errorf("pump %s: total head %g must exceed working pressure %g", p.name, totalHead, workingPressure)
	}
	if workingFlow <= 0 {
		return fmt.Errorf("pump %s: working flow must be positive, got %g", p.name, workingFlow)
	}
	if workingPressure <= 0 {
		return fmt.Errorf("pump %s: working pressure must be positive, got %g", p.name, workingPressure)
	}
	p.totalHead = totalHead
	resistance := (totalHead - workingPressure) / workingFlow
	p.suctionResistance = resistance * 0.5
	p.dischargeResistance = resistance * 0.5
	return nil
}

// SetInitialCondition places the assembly in a consistent starting state:
// valve positions are forced without travel, and a pump that starts active
// with both valves open begins at the running end of the sequence.
func (p *Pump) SetInitialCondition(pumpActive, suctionOpen, dischargeOpen bool) {
	if suctionOpen {
		p.suction.Ramp().ForceOutput(100)
	}
	if dischargeOpen {
		p.discharge.Ramp().ForceOutput(100)
	}
	if pumpActive {
		p.state = PumpRunning
		p.effort = p.totalHead
	} else {
		p.state = PumpOffline
		p.effort = 0
	}
	if pumpActive && suctionOpen && dischargeOpen {
		p.seq = 5
	}
	p.prevState = p.state
}

// State returns the externally visible pump state.
func (p *Pump) State() PumpState { return p.state }

// Ready reports the readiness condition derived on the last step.
func (p *Pump) Ready() bool { return p.ready }

// Effort returns the pressure effort currently applied by the pump.
func (p *Pump) Effort() float64 { return p.effort }

// TotalHead returns the configured total head.
func (p *Pump) TotalHead() float64 { return p.totalHead }

// SuctionValve exposes the suction valve.
func (p *Pump) SuctionValve() *Valve { return p.suction }

// DischargeValve exposes the discharge valve.
func (p *Pump) DischargeValve() *Valve { return p.discharge }

// SuctionOpening returns the suction actuator position.
func (p *Pump) SuctionOpening() float64 { return p.suction.Opening() }

// DischargeOpening returns the discharge actuator position.
func (p *Pump) DischargeOpening() float64 { return p.discharge.Opening() }

// DischargeFlowOpening returns the discharge opening effective for flow,
// which is zero while the pump is not running (check-valve model).
func (p *Pump) DischargeFlowOpening() float64 { return p.dischargeFlowOpening }

// SuctionResistance returns the derived suction valve flow resistance.
func (p *Pump) SuctionResistance() float64 { return p.suctionResistance }

// DischargeResistance returns the derived discharge valve flow resistance.
func (p *Pump) DischargeResistance() float64 { return p.dischargeResistance }

// Start requests the timed startup sequence. It is only honored while the
// assembly is READY and the discharge valve is essentially closed.
func (p *Pump) Start() {
	if p.seq == 2 && p.discharge.Opening() <= dischargeReadyMax {
		p.seq = 3
		p.stateElapsed = 0
	}
}

// Stop forces the assembly offline and de-energizes the pump from any state,
// bypassing the timed sequence.
func (p *Pump) Stop() {
	p.seq = 0
	p.state = PumpOffline
	p.effort = 0
}

// OpenSuction drives the suction valve toward fully open.
func (p *Pump) OpenSuction() { p.suction.Open() }

// CloseSuction drives the suction valve toward fully closed.
func (p *Pump) CloseSuction() { p.suction.Close() }

// OpenDischarge drives the discharge valve toward fully open.
func (p *Pump) OpenDischarge() { p.discharge.Open() }

// CloseDischarge drives the discharge valve toward fully closed.
func (p *Pump) CloseDischarge() { p.discharge.Close() }

// HandleCommand consumes boolean commands addressed to the assembly's
// elements: <name>SuctionValve, <name>DischargeValve, and <name>Pump
// (true starts, false stops).
func (p *Pump) HandleCommand(cmd command.Command) bool {
	if cmd.Kind != command.KindSet {
		return false
	}
	switch cmd.Target {
	case p.name + "SuctionValve":
		if cmd.Set {
			p.OpenSuction()
		} else {
			p.CloseSuction()
		}
	case p.name + "DischargeValve":
		if cmd.Set {
			p.OpenDischarge()
		} else {
			p.CloseDischarge()
		}
	case p.name + "Pump":
		if cmd.Set {
			p.Start()
		} else {
			p.Stop()
		}
	default:
		return false
	}
	return true
}

// Step advances both valve actuators and the sequencer by dt seconds.
// safeToOperate is the assembly's per-step safety input; false prevents
// readiness and trips a running pump.
func (p *Pump) Step(dt float64, safeToOperate bool) {
	p.suction.Step(dt, Permissive())
	p.discharge.Step(dt, Permissive())

	// Such pumps always have a check valve. As the check valve itself is not
	// simulated, the discharge is treated as closed unless the pump runs.
	if p.state == PumpRunning {
		p.dischargeFlowOpening = p.discharge.Opening()
	} else {
		p.dischargeFlowOpening = 0
	}

	if p.hasSwitchOn {
		p.sinceSwitchOn += dt
	}

	// Readiness: suction essentially open, discharge essentially closed,
	// safety permissive, and the restart lock expired if the pump has been
	// switched on before.
	switch {
	case !safeToOperate:
		p.ready = false
	case !p.hasSwitchOn:
		p.ready = p.suction.Opening() >= suctionReadyMin &&
			p.discharge.Opening() <= dischargeReadyMax
	default:
		p.ready = p.suction.Opening() >= suctionReadyMin &&
			p.discharge.Opening() <= dischargeReadyMax &&
			p.sinceSwitchOn >= restartLock
	}

	p.stateElapsed += dt

	switch p.seq {
	case 0: // inactive
		if p.ready {
			p.seq = 1
			p.stateElapsed = 0
		}
	case 1: // confirming readiness
		if p.stateElapsed >= confirmDelay {
			p.state = PumpReady
			p.seq = 2
		}
		// The confirming state shares the READY abort check below on the
		// same step.
		fallthrough
	case 2: // ready to be switched on
		if !p.ready {
			p.seq = 0
			p.state = PumpOffline
		}
	case 3: // armed, short delay before startup
		if p.stateElapsed >= armDelay {
			p.stateElapsed = 0
			p.state = PumpStartup
			p.seq = 4
		} else if !p.ready {
			p.seq = 0
			p.state = PumpOffline
		}
	case 4: // startup phase
		if p.stateElapsed >= startupDelay {
			p.stateElapsed = 0
			p.seq = 5
			p.sinceSwitchOn = 0
			p.hasSwitchOn = true
			p.state = PumpRunning
			p.effort = p.totalHead
		} else if !p.ready {
			p.seq = 0
			p.state = PumpOffline
		}
	case 5: // running
		if !safeToOperate {
			p.seq = 0
			p.state = PumpOffline
			p.CloseSuction()
			p.CloseDischarge()
		} else if p.suction.Opening() < suctionLossMinimum {
			p.seq = 0
			p.state = PumpOffline
		}
	}

	if p.state != p.prevState {
		p.queue.Publish(events.Event{
			Name: p.name + "Pump_State",
			Old:  p.prevState.String(),
			New:  p.state.String(),
		})
		p.prevState = p.state
	}

	if p.recorder != nil {
		p.recorder.RecordFlag(p.name+"PumpRunning", p.state == PumpRunning)
	}
}
