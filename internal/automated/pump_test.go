package automated

import (
	"testing"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/events"
)

func readyPump(t *testing.T) *Pump {
	t.Helper()
	p := NewPump("feedwater")
	if err := p.InitCharacteristic(700000, 500000, 100); err != nil {
		t.Fatalf("InitCharacteristic: %v", err)
	}
	p.SuctionValve().Ramp().ForceOutput(100)
	return p
}

// stepUntil advances the pump until the condition holds, returning the
// elapsed seconds. It fails the test if the condition is not reached.
func stepUntil(t *testing.T, p *Pump, dt float64, maxSteps int, cond func() bool) float64 {
	t.Helper()
	for i := 1; i <= maxSteps; i++ {
		p.Step(dt, true)
		if cond() {
			return float64(i) * dt
		}
	}
	t.Fatalf("condition not reached within %d steps", maxSteps)
	return 0
}

func TestPumpStartupTiming(t *testing.T) {
	p := readyPump(t)

	// Readiness must be confirmed for 1.5 s before READY shows.
	tReady := stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	if tReady < 1.5 || tReady > 1.8 {
		t.Fatalf("READY after %.1f s, want about 1.6 s", tReady)
	}
	if p.Effort() != 0 {
		t.Fatalf("effort %g before start, want 0", p.Effort())
	}

	p.Start()

	// Arm dwell 0.8 s plus startup phase 3.0 s before the pump energizes.
	var sawStartup bool
	var tRunning float64
	for i := 1; i <= 100; i++ {
		p.Step(0.1, true)
		if p.State() == PumpStartup {
			sawStartup = true
		}
		if p.State() == PumpRunning {
			if p.Effort() != p.TotalHead() {
				t.Fatalf("effort %g on the energizing step, want %g", p.Effort(), p.TotalHead())
			}
			tRunning = float64(i) * 0.1
			break
		}
		if p.Effort() != 0 {
			t.Fatalf("effort %g before RUNNING, want 0", p.Effort())
		}
	}
	if !sawStartup {
		t.Fatal("STARTUP state never observed")
	}
	if tRunning < 3.8 || tRunning > 4.1 {
		t.Fatalf("RUNNING %.1f s after start, want about 3.8 s", tRunning)
	}
}

func TestPumpStateEvents(t *testing.T) {
	q := events.NewQueue(64)
	p := readyPump(t)
	p.SetEventQueue(q)

	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	p.Start()
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })

	var states []any
	for _, e := range q.Drain() {
		if e.Name == "feedwaterPump_State" {
			states = append(states, e.New)
		}
	}
	want := []any{"ready", "startup", "running"}
	if len(states) != len(want) {
		t.Fatalf("state events %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state events %v, want %v", states, want)
		}
	}
}

func TestPumpStartIgnoredUnlessReady(t *testing.T) {
	p := readyPump(t)
	p.Start() // still OFFLINE, confirming has not even begun
	p.Step(0.1, true)
	if p.State() != PumpOffline {
		t.Fatalf("state %v after premature start, want offline", p.State())
	}
	for i := 0; i < 50; i++ {
		p.Step(0.1, true)
		if p.State() == PumpStartup || p.State() == PumpRunning {
			t.Fatal("premature start must not arm the sequence")
		}
	}
}

func TestPumpStartRefusedWithOpenDischarge(t *testing.T) {
	p := readyPump(t)
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })

	// Force the discharge open without travel; readiness collapses, but the
	// start guard must refuse on its own before the abort is even evaluated.
	p.DischargeValve().Ramp().ForceOutput(50)
	p.Start()
	p.Step(0.1, true)
	if p.State() == PumpStartup || p.State() == PumpRunning {
		t.Fatal("start with open discharge must be refused")
	}
}

func TestPumpRestartLock(t *testing.T) {
	p := readyPump(t)
	stepUntil(t, p, 0.1, 200, func() bool { return p.State() == PumpReady })
	p.Start()
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })
	p.Stop()

	// A second start within 30 s of the switch-on must never reach RUNNING.
	for i := 0; i < 280; i++ {
		p.Start()
		p.Step(0.1, true)
		if p.State() == PumpStartup || p.State() == PumpRunning {
			t.Fatalf("step %d: restarted inside the restart lock", i)
		}
	}

	// Once the lock expires the normal sequence applies again.
	stepUntil(t, p, 0.1, 200, func() bool { return p.State() == PumpReady })
	p.Start()
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })
}

func TestPumpSafetyTripClosesValves(t *testing.T) {
	p := readyPump(t)
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	p.Start()
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })

	p.Step(0.1, false)
	if p.State() != PumpOffline {
		t.Fatalf("state %v after safety loss, want offline", p.State())
	}
	before := p.SuctionOpening()
	p.Step(0.1, true)
	if p.SuctionOpening() >= before {
		t.Fatal("suction valve not driven closed after safety trip")
	}
}

func TestPumpSuctionLossTrip(t *testing.T) {
	p := readyPump(t)
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	p.Start()
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })

	p.CloseSuction()
	elapsed := stepUntil(t, p, 0.1, 200, func() bool { return p.State() == PumpOffline })
	if p.SuctionOpening() >= suctionLossMinimum {
		t.Fatalf("tripped at suction %g, want below %g", p.SuctionOpening(), suctionLossMinimum)
	}
	// 100 % to below 20 % at 15 %/s.
	if elapsed < 5.0 || elapsed > 5.7 {
		t.Fatalf("suction-loss trip after %.1f s, want about 5.4 s", elapsed)
	}
	// The trip de-sequences the pump but does not de-energize it; only an
	// explicit stop does.
	if p.Effort() != p.TotalHead() {
		t.Fatalf("effort %g after suction-loss trip, want %g", p.Effort(), p.TotalHead())
	}
	p.Stop()
	if p.Effort() != 0 {
		t.Fatalf("effort %g after stop, want 0", p.Effort())
	}
}

func TestPumpStopFromAnyState(t *testing.T) {
	p := readyPump(t)
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	p.Start()
	p.Step(0.1, true) // armed
	p.Stop()
	if p.State() != PumpOffline || p.Effort() != 0 {
		t.Fatalf("state %v effort %g after stop, want offline and 0", p.State(), p.Effort())
	}
}

func TestPumpCheckValveForcesDischargeFlow(t *testing.T) {
	p := readyPump(t)
	p.OpenDischarge()
	for i := 0; i < 30; i++ {
		p.Step(0.1, true)
	}
	if p.DischargeOpening() <= 0 {
		t.Fatal("discharge actuator did not travel")
	}
	if p.DischargeFlowOpening() != 0 {
		t.Fatalf("flow opening %g while not running, want 0", p.DischargeFlowOpening())
	}
}

func TestPumpRunningDischargeFlowFollowsOpening(t *testing.T) {
	p := readyPump(t)
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	p.Start()
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })

	p.OpenDischarge()
	for i := 0; i < 30; i++ {
		p.Step(0.1, true)
		if p.DischargeFlowOpening() != p.DischargeOpening() {
			t.Fatalf("flow opening %g, actuator %g while running",
				p.DischargeFlowOpening(), p.DischargeOpening())
		}
	}
}

func TestPumpConfirmingAbortsOnLostReadiness(t *testing.T) {
	q := events.NewQueue(16)
	p := readyPump(t)
	p.SetEventQueue(q)

	p.Step(0.1, true) // enters the confirming state
	p.SuctionValve().Ramp().ForceOutput(0)
	for i := 0; i < 30; i++ {
		p.Step(0.1, true)
		if p.State() != PumpOffline {
			t.Fatalf("step %d: state %v, want offline while readiness is lost", i, p.State())
		}
	}
	for _, e := range q.Drain() {
		if e.Name == "feedwaterPump_State" {
			t.Fatalf("unexpected state event %v", e)
		}
	}
}

func TestPumpCommands(t *testing.T) {
	p := readyPump(t)
	if p.HandleCommand(command.Command{Target: "otherPump", Kind: command.KindSet, Set: true}) {
		t.Fatal("command for another assembly must not be consumed")
	}
	if !p.HandleCommand(command.Command{Target: "feedwaterDischargeValve", Kind: command.KindSet, Set: true}) {
		t.Fatal("discharge valve command must be consumed")
	}
	p.Step(1.0, true)
	if p.DischargeOpening() <= 0 {
		t.Fatal("discharge valve command had no effect")
	}
	if !p.HandleCommand(command.Command{Target: "feedwaterDischargeValve", Kind: command.KindSet, Set: false}) {
		t.Fatal("discharge valve command must be consumed")
	}
	for i := 0; i < 30; i++ {
		p.Step(0.1, true)
	}

	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpReady })
	if !p.HandleCommand(command.Command{Target: "feedwaterPump", Kind: command.KindSet, Set: true}) {
		t.Fatal("pump start command must be consumed")
	}
	stepUntil(t, p, 0.1, 100, func() bool { return p.State() == PumpRunning })
	if !p.HandleCommand(command.Command{Target: "feedwaterPump", Kind: command.KindSet, Set: false}) {
		t.Fatal("pump stop command must be consumed")
	}
	if p.State() != PumpOffline {
		t.Fatalf("state %v after stop command, want offline", p.State())
	}
}

func TestPumpInitialConditionRunning(t *testing.T) {
	q := events.NewQueue(16)
	p := readyPump(t)
	p.SetEventQueue(q)
	p.SetInitialCondition(true, true, true)

	if p.State() != PumpRunning {
		t.Fatalf("state %v, want running", p.State())
	}
	if p.Effort() != p.TotalHead() {
		t.Fatalf("effort %g, want %g", p.Effort(), p.TotalHead())
	}
	p.Step(0.1, true)
	if p.State() != PumpRunning {
		t.Fatalf("state %v after one step, want running", p.State())
	}
	for _, e := range q.Drain() {
		if e.Name == "feedwaterPump_State" {
			t.Fatalf("unexpected state event %v on a pre-running pump", e)
		}
	}
}

func TestPumpRecordsRunningFlag(t *testing.T) {
	rec := newCapture()
	p := readyPump(t)
	p.SetRecorder(rec)
	p.Step(0.1, true)
	flags := rec.flags["feedwaterPumpRunning"]
	if len(flags) != 1 || flags[0] {
		t.Fatalf("running flag %v, want one false sample", flags)
	}
}

func TestPumpCharacteristicValidation(t *testing.T) {
	p := NewPump("p")
	if err := p.InitCharacteristic(500000, 700000, 100); err == nil {
		t.Fatal("expected error when working pressure exceeds total head")
	}
	if err := p.InitCharacteristic(700000, 500000, 0); err == nil {
		t.Fatal("expected error for non-positive working flow")
	}
	if err := p.InitCharacteristic(700000, 500000, 100); err != nil {
		t.Fatalf("InitCharacteristic: %v", err)
	}
	// (700000-500000)/100 split evenly across both valves.
	if p.SuctionResistance() != 1000 || p.DischargeResistance() != 1000 {
		t.Fatalf("resistances %g/%g, want 1000/1000",
			p.SuctionResistance(), p.DischargeResistance())
	}
}
