// Package channel implements a named broadcast bus: every handle with the
// same store name receives every message any handle with that name
// publishes. Delivery is best-effort and unordered, and the bus tolerates
// (by construction) the degenerate case of a publisher also being a
// subscriber: it simply never delivers a message back to its own origin.
//
// Grounded on the process-scoped sync.Map registry pattern in
// _examples/other_examples/calvinalkan-agent-task__slotcache.go
// (globalRegistry sync.Map + a separate mutex guarding membership changes),
// generalized from "one entry per open file" to "one topic per store name,
// fan-out to every subscriber."
package channel

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize bounds how many undelivered messages a slow
// subscriber can accumulate before Publish starts dropping to it rather than
// blocking the publisher.
const subscriberBufferSize = 64

type topic struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]chan Message
}

// Bus is a process-wide registry of named topics. The zero value is not
// usable; construct one with NewBus.
type Bus struct {
	topics sync.Map // map[string]*topic
}

// NewBus creates an empty broadcast bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) topicFor(name string) *topic {
	if v, ok := b.topics.Load(name); ok {
		return v.(*topic)
	}
	t := &topic{subs: make(map[uuid.UUID]chan Message)}
	actual, _ := b.topics.LoadOrStore(name, t)
	return actual.(*topic)
}

// Subscribe registers peerID as a listener on the named topic and returns
// the channel it will receive Messages on, plus an unsubscribe function the
// caller must call exactly once (typically from Handle.Close).
func (b *Bus) Subscribe(name string, peerID uuid.UUID) (<-chan Message, func()) {
	t := b.topicFor(name)
	ch := make(chan Message, subscriberBufferSize)

	t.mu.Lock()
	t.subs[peerID] = ch
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		if cur, ok := t.subs[peerID]; ok && cur == ch {
			delete(t.subs, peerID)
		}
		t.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish delivers msg to every current subscriber of name except msg.Origin
// itself. Delivery is non-blocking: a subscriber whose buffer is full misses
// the message rather than stalling the publisher, so handlers on the
// receiving end must treat every message as best-effort and idempotent.
func (b *Bus) Publish(name string, msg Message) {
	t := b.topicFor(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, ch := range t.subs {
		if id == msg.Origin {
			continue
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

// SubscriberCount reports how many live subscribers a topic currently has.
// Used by tests.
func (b *Bus) SubscriberCount(name string) int {
	t := b.topicFor(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
