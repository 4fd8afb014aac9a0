// Package redisbus bridges the plant to Redis Pub/Sub. It subscribes to a
// command channel and submits parsed envelopes to the plant, and publishes
// plant events to an event channel so external consoles can follow the
// session without a direct HTTP connection.
package redisbus

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/plant"
)

// Default channel names.
const (
	DefaultCommandChannel = "plant:commands"
	DefaultEventChannel   = "plant:events"
)

// Status reports the bridge's connection state and traffic counters.
type Status struct {
	Connected bool   `json:"connected"`
	LastError string `json:"last_error,omitempty"`
	Received  int    `json:"received"`
	Published int    `json:"published"`
}

// Bridge connects one plant to Redis Pub/Sub. A nil Bridge is valid and
// inert, so callers can wire it unconditionally and leave Redis optional.
type Bridge struct {
	rdb   *redis.Client
	plant *plant.Plant

	commandChannel string
	eventChannel   string
	pingInterval   time.Duration

	mu        sync.RWMutex
	connected bool
	lastErr   string
	received  int
	published int
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithChannels overrides the command and event channel names.
func WithChannels(commandChannel, eventChannel string) Option {
	return func(b *Bridge) {
		b.commandChannel = commandChannel
		b.eventChannel = eventChannel
	}
}

// WithPingInterval sets the health check interval (default 5s).
func WithPingInterval(d time.Duration) Option {
	return func(b *Bridge) {
		b.pingInterval = d
	}
}

// New creates a Bridge. A nil client yields a nil Bridge.
func New(rdb *redis.Client, p *plant.Plant, opts ...Option) *Bridge {
	if rdb == nil {
		return nil
	}
	b := &Bridge{
		rdb:            rdb,
		plant:          p,
		commandChannel: DefaultCommandChannel,
		eventChannel:   DefaultEventChannel,
		pingInterval:   5 * time.Second,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run subscribes to the command channel and blocks until ctx is cancelled.
// Redis connection loss is logged; go-redis resubscribes transparently.
func (b *Bridge) Run(ctx context.Context) {
	if b == nil {
		return
	}

	sub := b.rdb.Subscribe(ctx, b.commandChannel)
	defer sub.Close()
	ch := sub.Channel()

	ticker := time.NewTicker(b.pingInterval)
	defer ticker.Stop()

	log.Printf("redisbus: listening for commands on %s", b.commandChannel)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleCommand(msg.Payload)
		case <-ticker.C:
			b.check(ctx)
		}
	}
}

func (b *Bridge) handleCommand(payload string) {
	env, err := command.Parse([]byte(payload))
	if err != nil {
		log.Printf("redisbus: drop command: %v", err)
		return
	}
	if err := b.plant.Submit(env.Command); err != nil {
		log.Printf("redisbus: submit %s from %s: %v", env.Command.Target, env.Source, err)
		return
	}

	b.mu.Lock()
	b.received++
	b.mu.Unlock()
	log.Printf("redisbus: accepted %s %s from %s (id=%s)",
		env.Command.Kind, env.Command.Target, env.Source, env.ID)
}

// check performs a single PING and logs connection state transitions.
func (b *Bridge) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err := b.rdb.Ping(pingCtx).Err()

	b.mu.Lock()
	was := b.connected
	if err != nil {
		b.connected = false
		b.lastErr = err.Error()
	} else {
		b.connected = true
		b.lastErr = ""
	}
	b.mu.Unlock()

	if err != nil && was {
		log.Printf("redisbus: connection lost: %v", err)
	}
	if err == nil && !was {
		log.Printf("redisbus: connected")
	}
}

// busEvent is the wire format published on the event channel.
type busEvent struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// BroadcastEvent implements plant.Broadcaster by publishing the event as
// JSON. Publish failures are logged and dropped so a dead broker never
// stalls the simulation loop.
func (b *Bridge) BroadcastEvent(eventType string, payload interface{}) {
	if b == nil {
		return
	}

	data, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("redisbus: encode event %s: %v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.eventChannel, data).Err(); err != nil {
		log.Printf("redisbus: publish %s: %v", b.eventChannel, err)
		return
	}

	b.mu.Lock()
	b.published++
	b.mu.Unlock()
}

func encodeEvent(eventType string, payload interface{}) ([]byte, error) {
	return json.Marshal(busEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC().Unix(),
		Payload:   payload,
	})
}

// Status returns the bridge's connection state and traffic counters.
// A nil Bridge reports disconnected.
func (b *Bridge) Status() Status {
	if b == nil {
		return Status{}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Status{
		Connected: b.connected,
		LastError: b.lastErr,
		Received:  b.received,
		Published: b.published,
	}
}
