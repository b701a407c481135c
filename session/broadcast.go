package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trackkit/gpstrack/location"
)

// A Subscription receives accepted samples and status changes from a session.
// Slow consumers lose events rather than stalling the session: sends never
// block, and an event arriving at a full buffer is dropped for that
// subscriber only.
type Subscription struct {
	id       uuid.UUID
	b        *broadcaster
	samples  chan location.Sample
	statuses chan Status
}

// Samples delivers accepted location samples.
func (s *Subscription) Samples() <-chan location.Sample {
	return s.samples
}

// Statuses delivers tracking status changes.
func (s *Subscription) Statuses() <-chan Status {
	return s.statuses
}

// Unsubscribe removes the subscription and closes its channels. It is
// idempotent.
func (s *Subscription) Unsubscribe() {
	s.b.unsubscribe(s.id)
}

type broadcaster struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	buffer int
	closed bool
}

func newBroadcaster(buffer int) *broadcaster {
	return &broadcaster{
		subs:   map[uuid.UUID]*Subscription{},
		buffer: buffer,
	}
}

func (b *broadcaster) subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:       uuid.New(),
		b:        b,
		samples:  make(chan location.Sample, b.buffer),
		statuses: make(chan Status, b.buffer),
	}
	if b.closed {
		// A subscription to a closed broadcaster is inert.
		close(sub.samples)
		close(sub.statuses)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *broadcaster) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.samples)
	close(sub.statuses)
}

func (b *broadcaster) publishSample(s location.Sample) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.samples <- s:
		default:
		}
	}
}

func (b *broadcaster) publishStatus(status Status) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.statuses <- status:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.samples)
		close(sub.statuses)
	}
}
