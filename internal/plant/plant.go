package plant

import (
	"fmt"
	"log"
	"sync"

	"github.com/holla2040/plantsim/internal/alarm"
	"github.com/holla2040/plantsim/internal/automated"
	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/control"
	"github.com/holla2040/plantsim/internal/events"
	"github.com/holla2040/plantsim/internal/safety"
	"github.com/holla2040/plantsim/internal/telemetry"
)

// Broadcaster receives plant events for fan-out to connected clients.
type Broadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// Safety signal names evaluated by the plant each step.
const (
	SignalEstop         = "estop"
	SignalTankHighLevel = "tankHighLevel"
)

const commandBacklog = 64

// Plant wires the equipment models of one feedwater train to the process
// model, the safety panel, alarms, and telemetry. All equipment advances in
// Step; commands submitted between steps are applied at the start of the
// next one, so the loop goroutine is the only writer of equipment state.
type Plant struct {
	cfg *Config

	pump      *automated.Pump
	feedValve *automated.ControlledValve
	demand    *automated.FlowSource
	setpoint  *control.Setpoint
	auxValves []*automated.Valve
	level     *control.Integrator

	recorder *telemetry.Recorder
	alarms   *alarm.Manager
	panel    *safety.Panel
	queue    *events.Queue

	handlers []command.Handler
	commands chan command.Command

	mu           sync.RWMutex
	broadcasters []Broadcaster
	simTime      float64
	steps        uint64
	inflow       float64
	outflow      float64
}

// New builds a plant from its configuration.
func New(cfg *Config) (*Plant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Plant{
		cfg:      cfg,
		recorder: telemetry.NewRecorder(cfg.StepTime),
		alarms:   alarm.NewManager(),
		queue:    events.NewQueue(256),
		commands: make(chan command.Command, commandBacklog),
		level:    control.NewIntegrator(),
	}
	p.panel = safety.New(
		func(c safety.Condition) { log.Printf("safety: trip %s (%s)", c.Name, c.Reason) },
		func(name string) { log.Printf("safety: clear %s", name) },
	)
	p.alarms.SetEventQueue(p.queue)

	pump := automated.NewPump(cfg.Pump.Name)
	if err := pump.InitCharacteristic(cfg.Pump.TotalHead, cfg.Pump.WorkingPressure, cfg.Pump.WorkingFlow); err != nil {
		return nil, err
	}
	pump.SetRecorder(p.recorder)
	pump.SetEventQueue(p.queue)
	pump.SetInitialCondition(cfg.Pump.StartRunning, cfg.Pump.StartRunning, cfg.Pump.StartRunning)
	p.pump = pump

	fv := automated.NewControlledValve(cfg.FeedValve.Name)
	if err := fv.Controller().SetGain(cfg.FeedValve.Gain); err != nil {
		return nil, err
	}
	if err := fv.Controller().SetIntegralTime(cfg.FeedValve.IntegralTime); err != nil {
		return nil, err
	}
	fv.SetRecorder(p.recorder)
	fv.SetEventQueue(p.queue)
	fv.InitOpening(cfg.FeedValve.InitialOpening)
	fv.Controller().SetManual(!cfg.FeedValve.StartAutomatic)
	p.feedValve = fv

	demand := automated.NewFlowSource(cfg.Demand.Name)
	if err := demand.InitCharacteristic(cfg.Demand.MaxFlow, cfg.Demand.TravelTime); err != nil {
		return nil, err
	}
	demand.SetRecorder(p.recorder)
	demand.SetEventQueue(p.queue)
	demand.InitFlow(cfg.Demand.InitialFlow)
	p.demand = demand

	sp, err := control.NewSetpoint(cfg.Setpoint.Name, cfg.Setpoint.Rate, cfg.Setpoint.Min, cfg.Setpoint.Max)
	if err != nil {
		return nil, err
	}
	sp.SetRecorder(p.recorder)
	sp.ForceValue(cfg.Setpoint.Initial)
	p.setpoint = sp

	for _, vc := range cfg.Valves {
		v := automated.NewValve(vc.Name)
		if vc.Resistance > 0 {
			if err := v.InitCharacteristic(vc.Resistance, vc.Leakage); err != nil {
				return nil, err
			}
		}
		v.SetRecorder(p.recorder)
		v.SetEventQueue(p.queue)
		v.InitOpening(vc.InitialOpening)
		p.auxValves = append(p.auxValves, v)
	}

	if err := p.level.SetIntegralTime(1); err != nil {
		return nil, err
	}
	p.level.ForceOutput(cfg.Tank.InitialLevel)

	p.handlers = append(p.handlers, p.pump, p.feedValve, p.demand, p.setpoint)
	for _, v := range p.auxValves {
		p.handlers = append(p.handlers, v)
	}

	return p, nil
}

// Config returns the plant configuration.
func (p *Plant) Config() *Config { return p.cfg }

// Recorder returns the telemetry recorder.
func (p *Plant) Recorder() *telemetry.Recorder { return p.recorder }

// Alarms returns the alarm manager.
func (p *Plant) Alarms() *alarm.Manager { return p.alarms }

// Panel returns the safety panel.
func (p *Plant) Panel() *safety.Panel { return p.panel }

// Pump returns the pump assembly.
func (p *Plant) Pump() *automated.Pump { return p.pump }

// FeedValve returns the level control valve.
func (p *Plant) FeedValve() *automated.ControlledValve { return p.feedValve }

// Demand returns the consumer-side flow source.
func (p *Plant) Demand() *automated.FlowSource { return p.demand }

// Level returns the current tank level in percent.
func (p *Plant) Level() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level.Output()
}

// AddBroadcaster registers a receiver for plant events.
func (p *Plant) AddBroadcaster(b Broadcaster) {
	p.mu.Lock()
	p.broadcasters = append(p.broadcasters, b)
	p.mu.Unlock()
}

// Submit queues an operator command for the next step. It returns an error
// when the backlog is full rather than blocking the caller.
func (p *Plant) Submit(cmd command.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	select {
	case p.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("plant: command backlog full, dropping %s for %s", cmd.Kind, cmd.Target)
	}
}

// Estop trips the emergency stop signal; every assembly loses its operate
// permission on the next step.
func (p *Plant) Estop(reason, initiator string) {
	p.panel.Trip(SignalEstop, reason, initiator)
	p.alarms.Fire("emergencyStop", alarm.StateActive, false)
}

// ResetEstop clears the emergency stop after the operator acknowledged it.
func (p *Plant) ResetEstop() {
	p.panel.Clear(SignalEstop)
	p.alarms.Fire("emergencyStop", alarm.StateNone, false)
}

// Step advances the whole plant by dt seconds: pending commands, equipment,
// process physics, protection, and telemetry, in that order.
func (p *Plant) Step(dt float64) {
	p.drainCommands()

	p.mu.Lock()
	estopOK := p.panel.OK(SignalEstop)
	highOK := p.panel.OK(SignalTankHighLevel)
	pumpSafe := estopOK && highOK
	feedSafe := automated.Safety{Close: estopOK && highOK, Open: true}

	p.setpoint.Step(dt)
	p.feedValve.Step(dt, feedSafe, p.setpoint.Value()-p.level.Output())
	p.pump.Step(dt, pumpSafe)
	p.demand.Step(dt)
	for _, v := range p.auxValves {
		v.Step(dt, automated.Safety{Close: estopOK, Open: true})
	}

	inflow := p.feedFlow()
	outflow := p.demand.Flow()
	p.level.SetInput((inflow - outflow) / p.cfg.Tank.Capacity * 100)
	p.level.Step(dt)

	p.protect()

	level := p.level.Output()
	p.recorder.RecordValue("tankLevel", level)
	p.recorder.RecordValue("feedFlow", inflow)
	p.recorder.RecordValue("demandFlow", outflow)
	p.recorder.RecordValue("pumpEffort", p.pump.Effort())

	p.simTime += dt
	p.steps++
	p.inflow = inflow
	p.outflow = outflow
	broadcasters := p.broadcasters
	p.mu.Unlock()

	for _, e := range p.queue.Drain() {
		log.Printf("plant: event %s: %v -> %v", e.Name, e.Old, e.New)
		for _, b := range broadcasters {
			b.BroadcastEvent("plant_event", e)
		}
	}
}

// feedFlow derives the inflow from the pump effort and the series of
// openings between the pump and the tank. The characteristic is linear;
// conductances multiply so any closed element stops the flow.
func (p *Plant) feedFlow() float64 {
	resistance := p.pump.SuctionResistance() + p.pump.DischargeResistance()
	if resistance <= 0 {
		return 0
	}
	path := clampUnit(p.pump.SuctionOpening()/100) *
		clampUnit(p.pump.DischargeFlowOpening()/100) *
		clampUnit(p.feedValve.Opening()/100)
	return p.pump.Effort() / resistance * path
}

// protect evaluates the level protection: graded alarms on both sides and
// the high-level trip that blocks the pump and forces the feed valve closed.
// The trip clears with hysteresis at the alarm threshold.
func (p *Plant) protect() {
	level := p.level.Output()
	t := p.cfg.Tank

	switch {
	case level >= t.HighTrip:
		p.alarms.Fire("tankLevelHigh", alarm.StateMax, false)
		if p.panel.OK(SignalTankHighLevel) {
			p.panel.Trip(SignalTankHighLevel,
				fmt.Sprintf("level %.1f %% above trip %.1f %%", level, t.HighTrip), "plant")
		}
	case level >= t.HighAlarm:
		p.alarms.Fire("tankLevelHigh", alarm.StateHigh, false)
	default:
		p.alarms.Fire("tankLevelHigh", alarm.StateNone, false)
		p.panel.Clear(SignalTankHighLevel)
	}

	switch {
	case level <= t.LowTrip:
		p.alarms.Fire("tankLevelLow", alarm.StateMax, false)
	case level <= t.LowAlarm:
		p.alarms.Fire("tankLevelLow", alarm.StateHigh, false)
	default:
		p.alarms.Fire("tankLevelLow", alarm.StateNone, false)
	}
}

func (p *Plant) drainCommands() {
	for {
		select {
		case cmd := <-p.commands:
			if !command.Dispatch(cmd, p.handlers...) {
				log.Printf("plant: no handler for %s command to %s", cmd.Kind, cmd.Target)
			}
		default:
			return
		}
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
