// Package command defines the operator command model of the simulator and a
// JSON envelope for carrying commands over external transports (websocket,
// redis). A command addresses exactly one component by name; components
// report whether they consumed it, so unmatched commands can be offered to
// the next component in a chain without being errors.
package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the payload shape of a Command.
type Kind string

const (
	// KindSwitch carries a signed tri-state from a momentary switch:
	// -1 close/decrease, +1 open/increase, 0 stop.
	KindSwitch Kind = "switch"
	// KindSet carries a boolean target: true fully open / start,
	// false fully closed / stop.
	KindSet Kind = "set"
	// KindOpening carries a direct numeric opening target in percent.
	KindOpening Kind = "opening"
	// KindMode carries a controller mode request for controlled valves.
	KindMode Kind = "mode"
)

// Controller mode request values for KindMode commands.
const (
	ModeManual         = "manual"
	ModeAutomatic      = "automatic"
	ModeOutputIncrease = "output-increase"
	ModeOutputDecrease = "output-decrease"
	ModeOutputContinue = "output-continue"
)

// Command is a single operator command addressed to a named component.
// Exactly one payload field is meaningful, selected by Kind.
type Command struct {
	Target  string  `json:"target"`
	Kind    Kind    `json:"kind"`
	Switch  int     `json:"switch,omitempty"`
	Set     bool    `json:"set,omitempty"`
	Opening float64 `json:"opening,omitempty"`
	Mode    string  `json:"mode,omitempty"`
}

// Handler is implemented by every component that can consume commands.
type Handler interface {
	// HandleCommand returns true if the command was addressed to and
	// consumed by this component.
	HandleCommand(cmd Command) bool
}

// Validate checks that the command is well formed.
func (c Command) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("command target must not be empty")
	}
	switch c.Kind {
	case KindSwitch:
		if c.Switch < -1 || c.Switch > 1 {
			return fmt.Errorf("switch command value must be -1, 0 or +1, got %d", c.Switch)
		}
	case KindSet, KindOpening:
	case KindMode:
		switch c.Mode {
		case ModeManual, ModeAutomatic, ModeOutputIncrease, ModeOutputDecrease, ModeOutputContinue:
		default:
			return fmt.Errorf("unknown mode command value %q", c.Mode)
		}
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
	return nil
}

// Envelope wraps a command with transport metadata.
type Envelope struct {
	ID        string  `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source"`
	Command   Command `json:"command"`
}

// NewEnvelope wraps a command with a generated UUIDv4 and the current UTC
// timestamp.
func NewEnvelope(source string, cmd Command) Envelope {
	return Envelope{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC().Unix(),
		Source:    source,
		Command:   cmd,
	}
}

// Parse unmarshals and validates an envelope from JSON bytes.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse command envelope: %w", err)
	}
	if err := env.Command.Validate(); err != nil {
		return nil, fmt.Errorf("parse command envelope: %w", err)
	}
	return &env, nil
}

// Dispatch offers a command to each handler in order and returns true as soon
// as one consumes it.
func Dispatch(cmd Command, handlers ...Handler) bool {
	for _, h := range handlers {
		if h.HandleCommand(cmd) {
			return true
		}
	}
	return false
}
