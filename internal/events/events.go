// Package events carries state-change notifications from stepped components
// to the surrounding loop. Components publish into a bounded queue; the loop
// drains it after stepping and fans events out to whoever is attached
// (websocket clients, alarm manager, redis, log).
package events

import "sync/atomic"

// Event describes a single observable state change, such as a pump switching
// from READY to STARTUP or a controller leaving manual mode. Old may be nil
// for the first observation of a value.
type Event struct {
	Name string `json:"name"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Queue is a bounded event buffer. Publishing never blocks: when the queue is
// full the event is dropped and counted, so a slow consumer can never stall
// the simulation step.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan Event, size)}
}

// Publish enqueues an event without blocking. A nil queue is a no-op, so
// components can be constructed without an event sink.
func (q *Queue) Publish(e Event) {
	if q == nil {
		return
	}
	select {
	case q.ch <- e:
	default:
		q.dropped.Add(1)
	}
}

// Drain removes and returns all currently queued events in publish order.
func (q *Queue) Drain() []Event {
	if q == nil {
		return nil
	}
	var out []Event
	for {
		select {
		case e := <-q.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
