// Package plant assembles the simulated process: the equipment models, the
// control loops, the safety panel, alarms, and telemetry, advanced by a
// fixed-step loop. Configuration comes from a single YAML file describing
// the equipment and the process characteristics.
package plant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValveConfig describes one standalone automated valve.
type ValveConfig struct {
	Name           string  `yaml:"name" json:"name"`
	Resistance     float64 `yaml:"resistance,omitempty" json:"resistance,omitempty"`
	Leakage        float64 `yaml:"leakage,omitempty" json:"leakage,omitempty"`
	InitialOpening float64 `yaml:"initial_opening,omitempty" json:"initial_opening,omitempty"`
}

// ControlledValveConfig describes a valve cascaded with a PI controller.
type ControlledValveConfig struct {
	Name            string  `yaml:"name" json:"name"`
	Gain            float64 `yaml:"gain" json:"gain"`
	IntegralTime    float64 `yaml:"integral_time" json:"integral_time"`
	InitialOpening  float64 `yaml:"initial_opening,omitempty" json:"initial_opening,omitempty"`
	StartAutomatic  bool    `yaml:"start_automatic,omitempty" json:"start_automatic,omitempty"`
	ProcessSetpoint string  `yaml:"process_setpoint" json:"process_setpoint"`
}

// FlowSourceConfig describes a controllable flow source.
type FlowSourceConfig struct {
	Name        string  `yaml:"name" json:"name"`
	MaxFlow     float64 `yaml:"max_flow" json:"max_flow"`
	TravelTime  float64 `yaml:"travel_time" json:"travel_time"`
	InitialFlow float64 `yaml:"initial_flow,omitempty" json:"initial_flow,omitempty"`
}

// PumpConfig describes a pump assembly.
type PumpConfig struct {
	Name            string  `yaml:"name" json:"name"`
	TotalHead       float64 `yaml:"total_head" json:"total_head"`
	WorkingPressure float64 `yaml:"working_pressure" json:"working_pressure"`
	WorkingFlow     float64 `yaml:"working_flow" json:"working_flow"`
	StartRunning    bool    `yaml:"start_running,omitempty" json:"start_running,omitempty"`
}

// SetpointConfig describes an operator-adjustable setpoint.
type SetpointConfig struct {
	Name    string  `yaml:"name" json:"name"`
	Rate    float64 `yaml:"rate" json:"rate"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Initial float64 `yaml:"initial,omitempty" json:"initial,omitempty"`
}

// TankConfig describes the level process the control loop regulates.
type TankConfig struct {
	Capacity     float64 `yaml:"capacity" json:"capacity"`
	InitialLevel float64 `yaml:"initial_level" json:"initial_level"`
	HighAlarm    float64 `yaml:"high_alarm" json:"high_alarm"`
	HighTrip     float64 `yaml:"high_trip" json:"high_trip"`
	LowAlarm     float64 `yaml:"low_alarm" json:"low_alarm"`
	LowTrip      float64 `yaml:"low_trip" json:"low_trip"`
}

// Config is the full plant description loaded from YAML.
type Config struct {
	Name     string  `yaml:"name" json:"name"`
	StepTime float64 `yaml:"step_time" json:"step_time"`

	Pump       PumpConfig            `yaml:"pump" json:"pump"`
	FeedValve  ControlledValveConfig `yaml:"feed_valve" json:"feed_valve"`
	Valves     []ValveConfig         `yaml:"valves,omitempty" json:"valves,omitempty"`
	Demand     FlowSourceConfig      `yaml:"demand" json:"demand"`
	Setpoint   SetpointConfig        `yaml:"setpoint" json:"setpoint"`
	Tank       TankConfig            `yaml:"tank" json:"tank"`
}

// DefaultConfig returns a complete single-train feedwater plant: one pump
// assembly filling a tank through a level-controlled feed valve, with a flow
// source as the consumer side.
func DefaultConfig() *Config {
	return &Config{
		Name:     "feedwater-train",
		StepTime: 0.1,
		Pump: PumpConfig{
			Name:            "feedwater",
			TotalHead:       700000,
			WorkingPressure: 500000,
			WorkingFlow:     100,
		},
		FeedValve: ControlledValveConfig{
			Name:            "feedValve",
			Gain:            2.0,
			IntegralTime:    30,
			StartAutomatic:  true,
			ProcessSetpoint: "levelSetpoint",
		},
		Demand: FlowSourceConfig{
			Name:       "steamDemand",
			MaxFlow:    80,
			TravelTime: 4,
		},
		Setpoint: SetpointConfig{
			Name:    "levelSetpoint",
			Rate:    2,
			Min:     10,
			Max:     90,
			Initial: 50,
		},
		Tank: TankConfig{
			Capacity:     5000,
			InitialLevel: 50,
			HighAlarm:    85,
			HighTrip:     95,
			LowAlarm:     15,
			LowTrip:      5,
		},
	}
}

// LoadConfig reads and parses a plant YAML file and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plant config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing plant config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("plant config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the equipment models would
// reject.
func (c *Config) Validate() error {
	if c.StepTime <= 0 {
		return fmt.Errorf("step_time must be positive, got %g", c.StepTime)
	}
	if c.Pump.Name == "" {
		return fmt.Errorf("pump name must not be empty")
	}
	if c.Pump.WorkingPressure >= c.Pump.TotalHead {
		return fmt.Errorf("pump total_head %g must exceed working_pressure %g",
			c.Pump.TotalHead, c.Pump.WorkingPressure)
	}
	if c.Pump.WorkingFlow <= 0 {
		return fmt.Errorf("pump working_flow must be positive, got %g", c.Pump.WorkingFlow)
	}
	if c.FeedValve.Gain <= 0 {
		return fmt.Errorf("feed valve gain must be positive, got %g", c.FeedValve.Gain)
	}
	if c.FeedValve.IntegralTime <= 0 {
		return fmt.Errorf("feed valve integral_time must be positive, got %g", c.FeedValve.IntegralTime)
	}
	if c.Demand.MaxFlow <= 0 || c.Demand.TravelTime <= 0 {
		return fmt.Errorf("demand max_flow and travel_time must be positive")
	}
	if c.Setpoint.Min >= c.Setpoint.Max {
		return fmt.Errorf("setpoint min %g must be below max %g", c.Setpoint.Min, c.Setpoint.Max)
	}
	if c.Setpoint.Rate <= 0 {
		return fmt.Errorf("setpoint rate must be positive, got %g", c.Setpoint.Rate)
	}
	if c.Tank.Capacity <= 0 {
		return fmt.Errorf("tank capacity must be positive, got %g", c.Tank.Capacity)
	}
	if !(c.Tank.LowTrip < c.Tank.LowAlarm && c.Tank.LowAlarm < c.Tank.HighAlarm && c.Tank.HighAlarm < c.Tank.HighTrip) {
		return fmt.Errorf("tank thresholds must order low_trip < low_alarm < high_alarm < high_trip")
	}
	return nil
}
