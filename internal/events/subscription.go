package events

import "sync/atomic"

// Subscription is a scoped registration on a Bus.
type Subscription struct {
	id        uint64
	eventType string
	handler   Handler
	bus       *Bus
	released  atomic.Bool
}

// Release removes the subscription. Events still queued are not delivered to
// it afterwards. Release is idempotent.
func (s *Subscription) Release() {
	if s.released.Swap(true) {
		return
	}
	s.bus.unsubscribe(s)
}

func (s *Subscription) active() bool {
	return !s.released.Load()
}

// Group releases a set of subscriptions together.
type Group []*Subscription

func (g Group) Release() {
	for _, sub := range g {
		sub.Release()
	}
}
