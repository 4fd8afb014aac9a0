package control

import (
	"testing"

	"github.com/holla2040/plantsim/internal/command"
)

type recorded struct {
	name string
	v    float64
}

type fakeRecorder struct {
	values []recorded
}

func (f *fakeRecorder) RecordValue(name string, v float64) {
	f.values = append(f.values, recorded{name, v})
}

func TestSetpointCommandMatching(t *testing.T) {
	s, err := NewSetpoint("levelSetpoint", 10, 0, 100)
	if err != nil {
		t.Fatalf("NewSetpoint: %v", err)
	}

	if s.HandleCommand(command.Command{Target: "other", Kind: command.KindSwitch, Switch: 1}) {
		t.Fatal("command for another target must not be consumed")
	}
	if s.HandleCommand(command.Command{Target: "levelSetpoint", Kind: command.KindSet, Set: true}) {
		t.Fatal("non-switch command must not be consumed")
	}
	if !s.HandleCommand(command.Command{Target: "levelSetpoint", Kind: command.KindSwitch, Switch: 1}) {
		t.Fatal("matching switch command must be consumed")
	}
}

func TestSetpointRampAndStop(t *testing.T) {
	s, _ := NewSetpoint("sp", 10, 0, 100)
	s.HandleCommand(command.Command{Target: "sp", Kind: command.KindSwitch, Switch: 1})
	for i := 0; i < 10; i++ {
		s.Step(0.1)
	}
	if s.Value() != 10 {
		t.Fatalf("expected value 10 after 1 s raising, got %g", s.Value())
	}
	s.HandleCommand(command.Command{Target: "sp", Kind: command.KindSwitch, Switch: 0})
	s.Step(0.1)
	if s.Value() != 10 {
		t.Fatalf("value moved after stop: %g", s.Value())
	}
	s.HandleCommand(command.Command{Target: "sp", Kind: command.KindSwitch, Switch: -1})
	s.Step(0.1)
	if s.Value() != 9 {
		t.Fatalf("expected value 9 after one lowering step, got %g", s.Value())
	}
}

func TestSetpointRecordsEachStep(t *testing.T) {
	s, _ := NewSetpoint("sp", 10, 0, 100)
	rec := &fakeRecorder{}
	s.SetRecorder(rec)
	s.Step(0.1)
	s.Step(0.1)
	if len(rec.values) != 2 {
		t.Fatalf("expected 2 recorded values, got %d", len(rec.values))
	}
	if rec.values[0].name != "sp" {
		t.Fatalf("recorded name %q, want sp", rec.values[0].name)
	}
}
