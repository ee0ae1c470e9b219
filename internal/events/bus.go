package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when publishing to a bus that has been shut down.
var ErrClosed = errors.New("event bus closed")

type Event struct {
	Type      string
	Timestamp time.Time
	Data      interface{}
}

// Handler receives events for the types it subscribed to. Handlers run on the
// bus worker, one at a time, in publication order.
type Handler func(Event)

type Option func(*Bus)

// WithPanicHandler installs a callback for panics raised by handlers.
func WithPanicHandler(fn func(eventType string, recovered interface{})) Option {
	return func(b *Bus) {
		b.onPanic = fn
	}
}

type envelope struct {
	event   Event
	barrier chan struct{}
}

type Bus struct {
	subscribers map[string][]*Subscription
	mu          sync.RWMutex
	nextID      uint64

	buffer chan envelope
	sendMu sync.RWMutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	onPanic func(string, interface{})
}

func NewBus(bufferSize int, opts ...Option) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		subscribers: make(map[string][]*Subscription),
		buffer:      make(chan envelope, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(bus)
	}

	bus.startWorker()
	return bus
}

// Publish enqueues an event. It blocks while the buffer is full; events are
// never dropped.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return b.enqueue(ctx, envelope{event: event})
}

// Flush waits until every event published before the call has been handled.
func (b *Bus) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := b.enqueue(ctx, envelope{barrier: barrier}); err != nil {
		return err
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) enqueue(ctx context.Context, env envelope) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	select {
	case b.buffer <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ctx.Done():
		return ErrClosed
	}
}

// Subscribe registers handler for eventType. The returned subscription must
// be released by its owner.
func (b *Bus) Subscribe(eventType string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:        b.nextID,
		eventType: eventType,
		handler:   handler,
		bus:       b,
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.eventType]
	for i, s := range subs {
		if s.id == sub.id {
			b.subscribers[sub.eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[sub.eventType]) == 0 {
		delete(b.subscribers, sub.eventType)
	}
}

// SubscriberCount reports the live subscriptions for eventType.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// Shutdown stops accepting events, handles what is already queued and waits
// for the worker to exit. It is safe to call more than once.
func (b *Bus) Shutdown() {
	b.cancel()

	b.sendMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.buffer)
	}
	b.sendMu.Unlock()

	b.wg.Wait()
}

func (b *Bus) startWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		for env := range b.buffer {
			if env.barrier != nil {
				close(env.barrier)
				continue
			}
			b.dispatchEvent(env.event)
		}
	}()
}

func (b *Bus) dispatchEvent(event Event) {
	b.mu.RLock()
	subs := make([]*Subscription, len(b.subscribers[event.Type]))
	copy(subs, b.subscribers[event.Type])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.invoke(sub, event)
	}
}

func (b *Bus) invoke(sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil && b.onPanic != nil {
			b.onPanic(event.Type, r)
		}
	}()

	if sub.active() {
		sub.handler(event)
	}
}
