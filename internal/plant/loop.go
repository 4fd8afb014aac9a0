package plant

import (
	"context"
	"log"
	"time"

	"github.com/holla2040/plantsim/internal/alarm"
	"github.com/holla2040/plantsim/internal/safety"
)

// Run advances the plant at its configured step time until ctx is cancelled.
// Wall-clock jitter does not accumulate into the simulation: every tick
// advances by exactly the configured step.
func (p *Plant) Run(ctx context.Context) {
	dt := p.cfg.StepTime
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	log.Printf("plant: %s running at %.0f ms steps", p.cfg.Name, dt*1000)
	for {
		select {
		case <-ctx.Done():
			log.Printf("plant: %s stopped after %.1f s simulated", p.cfg.Name, p.SimTime())
			return
		case <-ticker.C:
			p.Step(dt)
		}
	}
}

// SimTime returns the simulated seconds elapsed since start.
func (p *Plant) SimTime() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.simTime
}

// Steps returns the number of completed steps.
func (p *Plant) Steps() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.steps
}

// Snapshot is a point-in-time view of the plant for API consumers.
type Snapshot struct {
	Name     string  `json:"name"`
	SimTime  float64 `json:"sim_time"`
	Steps    uint64  `json:"steps"`
	StepTime float64 `json:"step_time"`

	Level    float64 `json:"level"`
	Setpoint float64 `json:"setpoint"`
	FeedFlow float64 `json:"feed_flow"`
	Demand   float64 `json:"demand_flow"`

	PumpState        string  `json:"pump_state"`
	PumpReady        bool    `json:"pump_ready"`
	PumpEffort       float64 `json:"pump_effort"`
	SuctionOpening   float64 `json:"suction_opening"`
	DischargeOpening float64 `json:"discharge_opening"`

	FeedValveOpening float64 `json:"feed_valve_opening"`
	FeedValveMode    string  `json:"feed_valve_mode"`

	Values map[string]float64 `json:"values"`
	Flags  map[string]bool    `json:"flags"`

	Alarms  []alarm.Alarm      `json:"alarms"`
	Tripped []safety.Condition `json:"tripped"`
}

// Snapshot assembles the current plant state. Values come from the telemetry
// recorder so the snapshot matches what trends show.
func (p *Plant) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Snapshot{
		Name:     p.cfg.Name,
		SimTime:  p.simTime,
		Steps:    p.steps,
		StepTime: p.cfg.StepTime,

		Level:    p.level.Output(),
		Setpoint: p.setpoint.Value(),
		FeedFlow: p.inflow,
		Demand:   p.outflow,

		PumpState:        p.pump.State().String(),
		PumpReady:        p.pump.Ready(),
		PumpEffort:       p.pump.Effort(),
		SuctionOpening:   p.pump.SuctionOpening(),
		DischargeOpening: p.pump.DischargeOpening(),

		FeedValveOpening: p.feedValve.Opening(),
		FeedValveMode:    p.feedValve.Controller().Mode().String(),

		Values: p.recorder.LatestValues(),
		Flags:  p.recorder.LatestFlags(),

		Alarms:  p.alarms.Active(),
		Tripped: p.panel.Tripped(),
	}
}
