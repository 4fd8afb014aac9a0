package control

import (
	"math"
	"testing"
)

func TestNewRampGeneratorRejectsBadConfig(t *testing.T) {
	if _, err := NewRampGenerator(0, 0, 100); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if _, err := NewRampGenerator(-5, 0, 100); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if _, err := NewRampGenerator(10, 100, 100); err == nil {
		t.Fatal("expected error for equal bounds")
	}
	if _, err := NewRampGenerator(10, 50, 0); err == nil {
		t.Fatal("expected error for inverted bounds")
	}
}

func TestDriveToMaxMonotonic(t *testing.T) {
	r, err := NewRampGenerator(25, 0, 100)
	if err != nil {
		t.Fatalf("NewRampGenerator: %v", err)
	}

	const dt = 0.1
	prev := r.Output()
	for i := 0; i < 60; i++ {
		r.DriveToMax()
		r.Step(dt)
		out := r.Output()
		if out < prev {
			t.Fatalf("output decreased from %g to %g while driving to max", prev, out)
		}
		if out < 100 {
			step := out - prev
			if math.Abs(step-25*dt) > 1e-9 {
				t.Fatalf("step %d: expected increment %g, got %g", i, 25*dt, step)
			}
		}
		if out > 100 {
			t.Fatalf("output %g overshot upper bound", out)
		}
		prev = out
	}
	if prev != 100 {
		t.Fatalf("expected saturation at 100 after 6 s, got %g", prev)
	}
}

func TestDriveToMinSaturatesExactly(t *testing.T) {
	r, _ := NewRampGenerator(25, -5, 100)
	r.ForceOutput(10)
	r.DriveToMin()
	// One large step must land exactly on the lower bound, no undershoot.
	r.Step(100)
	if r.Output() != -5 {
		t.Fatalf("expected exact lower bound -5, got %g", r.Output())
	}
	// Persisting directional input past saturation must not move the output.
	r.Step(0.1)
	if r.Output() != -5 {
		t.Fatalf("output left lower bound: %g", r.Output())
	}
}

func TestLargeStepNoOvershoot(t *testing.T) {
	r, _ := NewRampGenerator(25, 0, 100)
	r.DriveToMax()
	r.Step(1000)
	if r.Output() != 100 {
		t.Fatalf("expected exact upper bound 100, got %g", r.Output())
	}
}

func TestSetTargetStopsExactlyOnTarget(t *testing.T) {
	r, _ := NewRampGenerator(10, 0, 100)
	r.SetTarget(42)
	for i := 0; i < 100; i++ {
		r.Step(0.1)
	}
	if r.Output() != 42 {
		t.Fatalf("expected output 42, got %g", r.Output())
	}
}

func TestSetTargetRateLimited(t *testing.T) {
	r, _ := NewRampGenerator(10, 0, 100)
	r.SetTarget(50)
	r.Step(0.1)
	if got := r.Output(); got != 1 {
		t.Fatalf("expected rate-limited first step of 1, got %g", got)
	}
}

func TestSetTargetBeyondBoundClamps(t *testing.T) {
	r, _ := NewRampGenerator(50, 0, 100)
	r.SetTarget(500)
	for i := 0; i < 50; i++ {
		r.Step(0.1)
	}
	if r.Output() != 100 {
		t.Fatalf("expected clamp at 100 for out-of-range target, got %g", r.Output())
	}
}

func TestHoldFreezesOutput(t *testing.T) {
	r, _ := NewRampGenerator(25, 0, 100)
	r.DriveToMax()
	r.Step(0.1)
	before := r.Output()
	r.Hold()
	for i := 0; i < 10; i++ {
		r.Step(0.1)
	}
	if r.Output() != before {
		t.Fatalf("output moved during hold: %g -> %g", before, r.Output())
	}
}

func TestForceOutputBypassesRateAndClamps(t *testing.T) {
	r, _ := NewRampGenerator(1, -5, 100)
	r.ForceOutput(73)
	if r.Output() != 73 {
		t.Fatalf("expected forced output 73, got %g", r.Output())
	}
	r.ForceOutput(105)
	if r.Output() != 100 {
		t.Fatalf("expected forced output clamped to 100, got %g", r.Output())
	}
	// Force freezes the drive: a following step must not move.
	r.Step(0.1)
	if r.Output() != 100 {
		t.Fatalf("output moved after force: %g", r.Output())
	}
}

func TestSetRateAndBoundsValidation(t *testing.T) {
	r, _ := NewRampGenerator(25, 0, 100)
	if err := r.SetRate(-1); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if err := r.SetBounds(10, 10); err == nil {
		t.Fatal("expected error for equal bounds")
	}
	r.ForceOutput(80)
	if err := r.SetBounds(0, 50); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	if r.Output() != 50 {
		t.Fatalf("expected output re-clamped to 50, got %g", r.Output())
	}
}
