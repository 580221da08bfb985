package events

import "sync"

// Bus fans out the station's domain events — SessionStartedEvent,
// SessionStoppedEvent, PowerUpdatedEvent, AllocationComputedEvent, and
// BessActionEvent — to every subscriber. Delivery is non-blocking: a slow
// subscriber drops events rather than stalling the façade call that
// published them.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan any
	closed bool
}

// NewBus constructs an empty Bus.
func NewBus() *Bus { return &Bus{} }

// Publish sends ev to every current subscriber.
func (b *Bus) Publish(ev any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan any {
	ch := make(chan any, 8)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes the bus and every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
