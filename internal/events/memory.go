package events

import (
	"context"
	"sync"
	"time"
)

// MemoryPublisher collects events in memory. Used by tests and by
// deployments without Kafka configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything emitted so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event{}, p.events...)
}

// ByType filters emitted events by type.
func (p *MemoryPublisher) ByType(t Type) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
