// Package eventbus is the in-process notification channel for catalog events.
//
// Delivery contract: events reach only the subscribers attached at publish
// time, at most once each. There is no replay for late subscribers and no
// backpressure; a subscriber whose buffer is full misses the event.
package eventbus

import (
	"sync"

	"github.com/zyenak/library-management/internal/domain/models"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 8

// Event is what listeners receive; today the only kind is a created book.
type Event struct {
	Name string
	Book models.Book
}

const EventBookAdded = "bookAdded"

type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
	log  *zerolog.Logger
}

func New(zlog *zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
		log:  zlog,
	}
}

// Subscribe attaches a listener and returns its channel plus a cancel func.
// The cancel func must be called exactly once; the channel is closed by it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans the event out to current subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.log.Debug().Int("subscriber", id).Str("event", event.Name).Msg("subscriber buffer full, event dropped")
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
