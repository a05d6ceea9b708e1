package reporting

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription receives published events on Channel.
type Subscription struct {
	ID      string
	Channel chan Event
	names   map[string]bool
	closed  bool
	mu      sync.RWMutex
}

// Close closes the subscription
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.Channel)
		s.closed = true
	}
}

// IsClosed returns whether the subscription is closed
func (s *Subscription) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Subscription) wants(name string) bool {
	return len(s.names) == 0 || s.names[name]
}

// deliver never blocks; a full buffer drops the event for this subscriber.
func (s *Subscription) deliver(e Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.Channel <- e:
		return true
	default:
		return false
	}
}

// BusMetrics tracks event bus activity.
type BusMetrics struct {
	ActiveSubscriptions int
	EventsPublished     int64
	EventsDelivered     int64
	EventsDropped       int64
	LastEventTime       time.Time
	EventsByName        map[string]int64
}

// EventBus fans events out to subscribers. It is the Emitter the status
// reporter writes to and the source the websocket hub reads from.
type EventBus struct {
	subscriptions map[string]*Subscription
	metrics       BusMetrics
	mu            sync.RWMutex
	closed        bool
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscriptions: make(map[string]*Subscription),
		metrics:       BusMetrics{EventsByName: make(map[string]int64)},
	}
}

// Emit wraps payload in an Event and publishes it.
func (eb *EventBus) Emit(name string, payload interface{}) {
	eb.Publish(Event{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// Publish publishes an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(eb.subscriptions))
	for _, s := range eb.subscriptions {
		subs = append(subs, s)
	}
	eb.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, s := range subs {
		if !s.wants(event.Name) {
			continue
		}
		if s.deliver(event) {
			delivered++
		} else {
			dropped++
		}
	}

	eb.mu.Lock()
	eb.metrics.EventsPublished++
	eb.metrics.EventsByName[event.Name]++
	eb.metrics.LastEventTime = event.Timestamp
	eb.metrics.EventsDelivered += int64(delivered)
	eb.metrics.EventsDropped += int64(dropped)
	eb.mu.Unlock()
}

// Subscribe returns a subscription buffering up to bufferSize events. With
// no names it receives every event.
func (eb *EventBus) Subscribe(bufferSize int, names ...string) *Subscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return nil
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}

	s := &Subscription{
		ID:      uuid.NewString(),
		Channel: make(chan Event, bufferSize),
		names:   make(map[string]bool, len(names)),
	}
	for _, n := range names {
		s.names[n] = true
	}
	eb.subscriptions[s.ID] = s
	eb.metrics.ActiveSubscriptions++
	return s
}

// Unsubscribe removes a subscription
func (eb *EventBus) Unsubscribe(s *Subscription) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[s.ID]; exists {
		s.Close()
		delete(eb.subscriptions, s.ID)
		eb.metrics.ActiveSubscriptions--
	}
}

// Metrics returns a copy of the bus metrics.
func (eb *EventBus) Metrics() BusMetrics {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	m := eb.metrics
	m.EventsByName = make(map[string]int64, len(eb.metrics.EventsByName))
	for k, v := range eb.metrics.EventsByName {
		m.EventsByName[k] = v
	}
	return m
}

// Close closes the event bus and all subscriptions
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.closed = true
	for _, s := range eb.subscriptions {
		s.Close()
	}
	eb.subscriptions = make(map[string]*Subscription)
	eb.metrics.ActiveSubscriptions = 0
}
