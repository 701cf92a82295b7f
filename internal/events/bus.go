package events

import (
	"fmt"
	"sync"
	"time"
)

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// DefaultBus is the channel-backed Bus implementation. Events are queued
// and dispatched from a single goroutine, so every subscriber observes
// events in publish order. Publishers never wait on handlers; they only
// wait for queue space.
type DefaultBus struct {
	subscribers map[Type][]subscription
	mu          sync.RWMutex

	queue  chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup

	nextID SubscriptionID
	idMu   sync.Mutex
}

// NewBus creates a bus with the given queue capacity and starts its
// dispatcher.
func NewBus(bufferSize int) *DefaultBus {
	b := &DefaultBus{
		subscribers: make(map[Type][]subscription),
		queue:       make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
		nextID:      1,
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	return b
}

// Subscribe registers a handler for one event type.
func (b *DefaultBus) Subscribe(t Type, h Handler) SubscriptionID {
	b.idMu.Lock()
	id := b.nextID
	b.nextID++
	b.idMu.Unlock()

	b.mu.Lock()
	b.subscribers[t] = append(b.subscribers[t], subscription{id: id, handler: h})
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription by ID.
func (b *DefaultBus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event, blocking until the queue accepts it. Events
// published after Stop are dropped.
func (b *DefaultBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case b.queue <- e:
	case <-b.stopCh:
	}
}

// PublishAsync queues an event without blocking the caller.
func (b *DefaultBus) PublishAsync(e Event) {
	go b.Publish(e)
}

// Stop shuts the bus down after draining queued events.
func (b *DefaultBus) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

// typeFlush is the internal sentinel Drain rides on. Never delivered to
// subscribers.
const typeFlush Type = "internal.flush"

// Drain blocks until every event queued before the call has been
// dispatched. The bus keeps running afterwards; use it when delivery
// must be observed before subscribers detach.
func (b *DefaultBus) Drain() {
	ack := make(chan struct{})
	e := Event{
		Type:      typeFlush,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"ack": ack},
	}
	select {
	case b.queue <- e:
		// Stop's drain loop delivers the sentinel too, so this cannot
		// hang even when the bus is shut down concurrently.
		<-ack
	case <-b.stopCh:
	}
}

func (b *DefaultBus) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.queue:
			b.handle(e)
		case <-b.stopCh:
			for {
				select {
				case e := <-b.queue:
					b.handle(e)
				default:
					return
				}
			}
		}
	}
}

func (b *DefaultBus) handle(e Event) {
	if e.Type == typeFlush {
		if ack, ok := e.Data["ack"].(chan struct{}); ok {
			close(ack)
		}
		return
	}
	b.dispatch(e)
}

func (b *DefaultBus) dispatch(e Event) {
	b.mu.RLock()
	subs := b.subscribers[e.Type]
	handlers := make([]Handler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, e)
	}
}

func (b *DefaultBus) safeCall(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[events] handler panic for %v: %v\n", e.Type, r)
		}
	}()
	h(e)
}

// SubscriberCount returns the number of handlers registered for a type.
func (b *DefaultBus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[t])
}
