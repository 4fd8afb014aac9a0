// Package safety tracks the named interlock conditions of the plant. The
// panel only holds state and notifies via callback; deciding which signals
// gate which equipment is wired externally by the plant loop, which samples
// the panel once per step and passes the results as explicit inputs.
package safety

import (
	"sync"
	"time"
)

// Condition describes one tripped interlock signal.
type Condition struct {
	Name      string    `json:"name"`
	Reason    string    `json:"reason,omitempty"`
	Initiator string    `json:"initiator,omitempty"`
	TrippedAt time.Time `json:"tripped_at,omitempty"`
}

// Panel manages named interlock signals. A signal that was never tripped is
// permissive. It contains no transport logic; subscriptions are wired
// externally.
type Panel struct {
	mu      sync.RWMutex
	tripped map[string]Condition
	onTrip  func(Condition)
	onClear func(string)
}

// New creates a Panel with all signals permissive. The onTrip callback is
// called on every trip, onClear on every clear; either may be nil.
func New(onTrip func(Condition), onClear func(string)) *Panel {
	return &Panel{
		tripped: make(map[string]Condition),
		onTrip:  onTrip,
		onClear: onClear,
	}
}

// Trip activates the named signal with the given reason and initiator.
// Re-tripping an active signal updates its condition. Returns the new
// condition.
func (p *Panel) Trip(name, reason, initiator string) Condition {
	p.mu.Lock()
	c := Condition{
		Name:      name,
		Reason:    reason,
		Initiator: initiator,
		TrippedAt: time.Now(),
	}
	p.tripped[name] = c
	cb := p.onTrip
	p.mu.Unlock()

	if cb != nil {
		cb(c)
	}
	return c
}

// Clear returns the named signal to permissive. Clearing a permissive signal
// is a no-op and does not notify.
func (p *Panel) Clear(name string) {
	p.mu.Lock()
	_, was := p.tripped[name]
	delete(p.tripped, name)
	cb := p.onClear
	p.mu.Unlock()

	if was && cb != nil {
		cb(name)
	}
}

// ClearAll returns every signal to permissive without notifying.
func (p *Panel) ClearAll() {
	p.mu.Lock()
	p.tripped = make(map[string]Condition)
	p.mu.Unlock()
}

// OK reports whether the named signal is permissive.
func (p *Panel) OK(name string) bool {
	p.mu.RLock()
	_, tripped := p.tripped[name]
	p.mu.RUnlock()
	return !tripped
}

// Permissive reports whether no signal is tripped.
func (p *Panel) Permissive() bool {
	p.mu.RLock()
	n := len(p.tripped)
	p.mu.RUnlock()
	return n == 0
}

// Condition returns a copy of the named signal's condition and whether the
// signal is tripped.
func (p *Panel) Condition(name string) (Condition, bool) {
	p.mu.RLock()
	c, ok := p.tripped[name]
	p.mu.RUnlock()
	return c, ok
}

// Tripped returns a copy of all tripped conditions.
func (p *Panel) Tripped() []Condition {
	p.mu.RLock()
	out := make([]Condition, 0, len(p.tripped))
	for _, c := range p.tripped {
		out = append(out, c)
	}
	p.mu.RUnlock()
	return out
}
