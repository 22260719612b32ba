package job

import (
	"context"
	"sync"
	"time"
)

// EventType classifies a job lifecycle transition.
type EventType string

const (
	EventEnqueued EventType = "enqueued"
	EventDone     EventType = "done"
	EventFailed   EventType = "failed"
)

// Event describes one job lifecycle transition for operational visibility.
type Event struct {
	Type  EventType `json:"type"`
	Job   Job       `json:"job"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Broadcast fan-outs job lifecycle events to all active subscribers
// (SSE clients, tests). Slow subscribers drop events rather than block
// the worker.
type Broadcast struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBroadcast initialises an empty broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (b *Broadcast) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (b *Broadcast) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
