// Package bus carries chat commands between UI surfaces that have no direct
// reference to each other. A quick-question button anywhere in the product
// can publish a submit without a callback threaded through to the chat
// surface. The bus is constructed once at app root and injected; there is
// no package-level singleton.
package bus

import (
	"sync"
	"time"
)

// Command asks the chat surface to submit text on the publisher's behalf.
type Command struct {
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is a typed publish/subscribe channel for chat commands.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Command
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Command)}
}

// Subscribe registers a listener and returns its id and delivery channel.
// buffer bounds how many undelivered commands are held for a slow listener.
func (b *Bus) Subscribe(buffer int) (int, <-chan Command) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan Command, buffer)
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers cmd to every subscriber. Delivery never blocks the
// publisher: a subscriber with a full buffer misses the command.
func (b *Bus) Publish(cmd Command) {
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- cmd:
		default:
		}
	}
}
