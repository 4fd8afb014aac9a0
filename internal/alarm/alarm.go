// Package alarm holds the annunciator state of the plant: one alarm object
// per monitored condition, with a graded priority ladder and acknowledge
// bookkeeping. The manager creates alarm objects on first use.
package alarm

import (
	"log"
	"sort"
	"sync"

	"github.com/holla2040/plantsim/internal/events"
)

// State is the priority of an alarm condition. None means no alarm. Active
// is a binary alarm without grading and compares strictly. The graded states
// order Low < High < Max, so a Max alarm also counts as an active High or
// Low when queried.
type State int

const (
	StateNone State = iota
	StateActive
	StateLow
	StateHigh
	StateMax
)

// String returns the annunciator label for a state.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateActive:
		return "active"
	case StateLow:
		return "low"
	case StateHigh:
		return "high"
	case StateMax:
		return "max"
	default:
		return "unknown"
	}
}

// graded reports whether the state takes part in priority comparison.
func (s State) graded() bool {
	return s == StateLow || s == StateHigh || s == StateMax
}

// includes reports whether an alarm in state s covers a query for state q.
func (s State) includes(q State) bool {
	return s.graded() && q.graded() && s >= q
}

// Alarm is one annunciator entry.
type Alarm struct {
	Name         string `json:"name"`
	State        State  `json:"-"`
	StateLabel   string `json:"state"`
	Suppressed   bool   `json:"suppressed"`
	Acknowledged bool   `json:"acknowledged"`
}

// Manager holds all alarm objects and the acknowledge state. Safe for
// concurrent use.
type Manager struct {
	mu     sync.RWMutex
	alarms map[string]*Alarm
	queue  *events.Queue
}

// NewManager creates a manager with no alarms.
func NewManager() *Manager {
	return &Manager{alarms: make(map[string]*Alarm)}
}

// SetEventQueue attaches the queue receiving alarm-state events.
func (m *Manager) SetEventQueue(q *events.Queue) {
	m.mu.Lock()
	m.queue = q
	m.mu.Unlock()
}

// Fire sets or updates an alarm. An escalation to a higher priority clears
// the acknowledge so the operator is notified again; returning to None also
// requires a fresh acknowledge before the entry disappears from the active
// list.
func (m *Manager) Fire(name string, state State, suppressed bool) {
	m.mu.Lock()
	a, known := m.alarms[name]
	if !known {
		a = &Alarm{Name: name}
		m.alarms[name] = a
	}

	oldState := a.State
	a.State = state
	a.StateLabel = state.String()
	a.Suppressed = suppressed

	switch {
	case state != StateNone && known:
		if oldState != state {
			a.Acknowledged = oldState.includes(state)
		}
	case state != StateNone:
		a.Acknowledged = false
	case !known:
		a.Acknowledged = true
	case oldState != StateNone:
		a.Acknowledged = false
	}

	q := m.queue
	m.mu.Unlock()

	if oldState != state {
		log.Printf("alarm: %s %s -> %s", name, oldState, state)
		q.Publish(events.Event{Name: name + "_Alarm", Old: oldState.String(), New: state.String()})
	}
}

// IsActive reports whether the named alarm is active at the given or a
// higher graded priority. None and Active compare strictly.
func (m *Manager) IsActive(name string, state State) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alarms[name]
	if !ok {
		return false
	}
	if state == StateNone || state == StateActive {
		return a.State == state
	}
	if a.State == StateNone {
		return false
	}
	return a.State.includes(state)
}

// Acknowledge marks every alarm as acknowledged.
func (m *Manager) Acknowledge() {
	m.mu.Lock()
	for _, a := range m.alarms {
		a.Acknowledged = true
	}
	m.mu.Unlock()
}

// Unacknowledged reports whether any alarm still needs an acknowledge.
func (m *Manager) Unacknowledged() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.alarms {
		if !a.Acknowledged {
			return true
		}
	}
	return false
}

// Alarms returns a snapshot of all alarm entries, sorted by name.
func (m *Manager) Alarms() []Alarm {
	m.mu.RLock()
	out := make([]Alarm, 0, len(m.alarms))
	for _, a := range m.alarms {
		out = append(out, *a)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Active returns a snapshot of the entries that are either not in None or
// not yet acknowledged, sorted by priority descending then name. This is the
// annunciator list.
func (m *Manager) Active() []Alarm {
	m.mu.RLock()
	out := make([]Alarm, 0, len(m.alarms))
	for _, a := range m.alarms {
		if a.State != StateNone || !a.Acknowledged {
			out = append(out, *a)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State > out[j].State
		}
		return out[i].Name < out[j].Name
	})
	return out
}
