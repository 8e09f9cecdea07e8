package loopback

import (
	"sync"

	"github.com/entrhq/lookout/pkg/types"
)

const subscriberBuffer = 32

// Hub fans browser events out to stream subscribers. Slow subscribers miss
// events rather than block the browser.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan *types.BrowserEvent]struct{}
	closed bool
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *types.BrowserEvent]struct{})}
}

// Publish delivers event to every subscriber with room for it.
// It has the types.EventEmitter signature.
func (h *Hub) Publish(event *types.BrowserEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel of events and a func that ends the subscription.
func (h *Hub) Subscribe() (<-chan *types.BrowserEvent, func()) {
	ch := make(chan *types.BrowserEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subs[ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
