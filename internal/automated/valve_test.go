package automated

import (
	"testing"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/events"
)

type capture struct {
	values map[string][]float64
	flags  map[string][]bool
}

func newCapture() *capture {
	return &capture{values: map[string][]float64{}, flags: map[string][]bool{}}
}

func (c *capture) RecordValue(name string, v float64) { c.values[name] = append(c.values[name], v) }
func (c *capture) RecordFlag(name string, v bool)     { c.flags[name] = append(c.flags[name], v) }

func TestValveCommandNameMatching(t *testing.T) {
	v := NewValve("suction")
	if v.HandleCommand(command.Command{Target: "discharge", Kind: command.KindSet, Set: true}) {
		t.Fatal("command for another valve must not be consumed")
	}
	if !v.HandleCommand(command.Command{Target: "suction", Kind: command.KindSet, Set: true}) {
		t.Fatal("matching command must be consumed")
	}
	if v.HandleCommand(command.Command{Target: "suction", Kind: command.KindMode, Mode: command.ModeManual}) {
		t.Fatal("mode command must not be consumed by a plain valve")
	}
}

func TestValveCommandShapeEquivalence(t *testing.T) {
	// Integer +1 and boolean true must yield identical ramp trajectories.
	a := NewValve("a")
	b := NewValve("b")
	a.HandleCommand(command.Command{Target: "a", Kind: command.KindSwitch, Switch: 1})
	b.HandleCommand(command.Command{Target: "b", Kind: command.KindSet, Set: true})

	for i := 0; i < 50; i++ {
		a.Step(0.1, Permissive())
		b.Step(0.1, Permissive())
		if a.Opening() != b.Opening() {
			t.Fatalf("step %d: trajectories diverged: %g vs %g", i, a.Opening(), b.Opening())
		}
	}
	if a.Opening() != 100 {
		t.Fatalf("expected both valves fully open, got %g", a.Opening())
	}
}

func TestValveOpeningTargetCommand(t *testing.T) {
	v := NewValve("v")
	if !v.HandleCommand(command.Command{Target: "v", Kind: command.KindOpening, Opening: 40}) {
		t.Fatal("opening command must be consumed")
	}
	for i := 0; i < 30; i++ {
		v.Step(0.1, Permissive())
	}
	if v.Opening() != 40 {
		t.Fatalf("expected opening 40, got %g", v.Opening())
	}
}

func TestValveSafeToCloseOverridesOpenCommand(t *testing.T) {
	v := NewValve("v")
	v.InitOpening(100)

	safe := Safety{Close: false, Open: true}
	for i := 0; i < 50; i++ {
		// The operator keeps commanding open every step; the interlock wins.
		v.HandleCommand(command.Command{Target: "v", Kind: command.KindSwitch, Switch: 1})
		before := v.Opening()
		v.Step(0.1, safe)
		if v.Opening() > before {
			t.Fatalf("step %d: opening rose under safe-to-close interlock", i)
		}
	}
	if v.Opening() != -5 {
		t.Fatalf("expected valve driven to lower bound -5, got %g", v.Opening())
	}

	// Once the interlock clears, the pending command applies again.
	v.HandleCommand(command.Command{Target: "v", Kind: command.KindSwitch, Switch: 1})
	v.Step(0.1, Permissive())
	if v.Opening() <= -5 {
		t.Fatal("opening did not recover after interlock cleared")
	}
}

func TestValveSafeToOpenForcesOpen(t *testing.T) {
	v := NewValve("v")
	v.HandleCommand(command.Command{Target: "v", Kind: command.KindSet, Set: false})
	safe := Safety{Close: true, Open: false}
	for i := 0; i < 50; i++ {
		v.Step(0.1, safe)
	}
	if v.Opening() != 100 {
		t.Fatalf("expected valve forced fully open, got %g", v.Opening())
	}
}

func TestValveSafeToClosePrecedesSafeToOpen(t *testing.T) {
	v := NewValve("v")
	v.InitOpening(50)
	v.Step(0.1, Safety{Close: false, Open: false})
	if v.Opening() >= 50 {
		t.Fatalf("safe-to-close must win over safe-to-open, opening %g", v.Opening())
	}
}

func TestValveMonitorBoundaryEvents(t *testing.T) {
	q := events.NewQueue(32)
	v := NewValve("v")
	v.SetEventQueue(q)
	v.HandleCommand(command.Command{Target: "v", Kind: command.KindSet, Set: true})

	var got []events.Event
	for i := 0; i < 60; i++ {
		v.Step(0.1, Permissive())
		got = append(got, q.Drain()...)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 boundary events (left closed, reached opened), got %d: %v", len(got), got)
	}
	if got[0].Name != "v_Closed" || got[0].New != false {
		t.Fatalf("first event %v, want v_Closed -> false", got[0])
	}
	if got[1].Name != "v_Opened" || got[1].New != true {
		t.Fatalf("second event %v, want v_Opened -> true", got[1])
	}
}

func TestValveInitOpeningAnnouncesNotClosed(t *testing.T) {
	q := events.NewQueue(8)
	v := NewValve("v")
	v.SetEventQueue(q)
	v.InitOpening(50)
	got := q.Drain()
	if len(got) != 1 || got[0].Name != "v_Closed" || got[0].New != false {
		t.Fatalf("expected v_Closed -> false announcement, got %v", got)
	}

	// Starting closed announces nothing.
	q2 := events.NewQueue(8)
	v2 := NewValve("v2")
	v2.SetEventQueue(q2)
	v2.InitOpening(0)
	if got := q2.Drain(); len(got) != 0 {
		t.Fatalf("expected no announcement for a closed start, got %v", got)
	}
}

func TestValveRecordsOpening(t *testing.T) {
	rec := newCapture()
	v := NewValve("v")
	v.SetRecorder(rec)
	v.Step(0.1, Permissive())
	v.Step(0.1, Permissive())
	if len(rec.values["v"]) != 2 {
		t.Fatalf("expected 2 recorded openings, got %d", len(rec.values["v"]))
	}
}

func TestValveCharacteristicValidation(t *testing.T) {
	v := NewValve("v")
	if err := v.InitCharacteristic(0, 0); err == nil {
		t.Fatal("expected error for non-positive resistance")
	}
	if err := v.InitCharacteristic(2500, 1.8); err != nil {
		t.Fatalf("InitCharacteristic: %v", err)
	}
	if v.ResistanceFullOpen() != 2500 {
		t.Fatalf("resistance %g, want 2500", v.ResistanceFullOpen())
	}
	if v.LeakageFactor() != 1.8 {
		t.Fatalf("leakage factor %g, want 1.8", v.LeakageFactor())
	}
	if err := v.InitCharacteristic(2500, 0.5); err != nil {
		t.Fatalf("InitCharacteristic: %v", err)
	}
	if v.LeakageFactor() != 0 {
		t.Fatalf("leakage factor %g, want 0 for tight closing", v.LeakageFactor())
	}
}

func TestSignalValveBehavesLikeActuator(t *testing.T) {
	sv := NewSignalValve("rod")
	if !sv.HandleCommand(command.Command{Target: "rod", Kind: command.KindSet, Set: true}) {
		t.Fatal("signal valve must consume its commands")
	}
	for i := 0; i < 50; i++ {
		sv.Step(0.1, Permissive())
	}
	if sv.Opening() != 100 {
		t.Fatalf("expected position 100, got %g", sv.Opening())
	}
}
