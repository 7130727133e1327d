package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	subscriberBufSize = 64
	historySize       = 100
)

// Event is one human-readable status update from the export pipeline.
// Events are informational only; nothing depends on them for correctness.
type Event struct {
	Message string `json:"message"`
}

// Broker fans out status events to all subscribers and keeps a short
// history for late joiners (the control server's /status endpoint).
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	history     []Event
	nextID      atomic.Int64
}

// NewBroker creates a new status broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a new listener. The channel is buffered; slow
// consumers have events dropped rather than blocking the pipeline.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish broadcasts a status message. Non-blocking.
func (b *Broker) Publish(msg string) {
	evt := Event{Message: msg}

	b.mu.Lock()
	b.history = append(b.history, evt)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// Publishf broadcasts a formatted status message.
func (b *Broker) Publishf(format string, args ...interface{}) {
	b.Publish(fmt.Sprintf(format, args...))
}

// History returns the retained recent events, oldest first.
func (b *Broker) History() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
