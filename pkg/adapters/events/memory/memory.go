package memory

import (
	"context"
	"sync"

	"github.com/aescanero/agentflow/pkg/domain"
	"github.com/aescanero/agentflow/pkg/ports"
)

// subscriptionBuffer is how many events a subscription queues before
// Publish blocks on it.
const subscriptionBuffer = 64

// subscription delivers events to its handler from a single goroutine, so a
// subscriber sees events in publish order.
type subscription struct {
	id      uint64
	handler ports.EventHandler
	events  chan domain.Event
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			// Handler errors are not reported to the publisher
			_ = s.handler(ctx, event)
		}
	}
}

// InMemoryEventBus implements EventBus using in-process handlers
type InMemoryEventBus struct {
	subscribers map[string][]*subscription
	nextID      uint64
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]*subscription),
	}
}

// Publish queues an event for every subscriber of a topic. It blocks while a
// subscriber's queue is full, until ctx is done.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	subs := make([]*subscription, len(e.subscribers[topic]))
	copy(subs, e.subscribers[topic])
	e.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.events <- event:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Subscribe subscribes to events on a specific topic until ctx is done
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	sub := &subscription{
		handler: handler,
		events:  make(chan domain.Event, subscriptionBuffer),
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	e.nextID++
	sub.id = e.nextID
	e.subscribers[topic] = append(e.subscribers[topic], sub)
	e.mu.Unlock()

	go sub.run(ctx)

	// Clean up subscription on context cancellation
	go func() {
		select {
		case <-ctx.Done():
			e.unsubscribe(topic, sub.id)
		case <-sub.done:
		}
	}()

	return nil
}

// Unsubscribe removes all subscriptions from a topic
func (e *InMemoryEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sub := range e.subscribers[topic] {
		sub.stop()
	}
	delete(e.subscribers, topic)
	return nil
}

// Close closes the event bus and cleans up resources
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, subs := range e.subscribers {
		for _, sub := range subs {
			sub.stop()
		}
	}
	e.subscribers = make(map[string][]*subscription)
	return nil
}

// SubscriberCount returns the number of live subscriptions on topic.
func (e *InMemoryEventBus) SubscriberCount(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[topic])
}

// unsubscribe removes a single subscription from a topic
func (e *InMemoryEventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			s.stop()
			e.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}
