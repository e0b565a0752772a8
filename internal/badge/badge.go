// Package badge fans the current cart item count out to every display
// element subscribed to it. A badge shows the count when it is positive
// and hides itself when the cart is empty.
package badge

import "sync"

type Hub struct {
	mu   sync.Mutex
	subs map[int]chan int
	next int
	last int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan int)}
}

// Subscribe returns a channel of count updates and a cancel func. The
// current count is delivered immediately so a late subscriber does not
// wait for the next mutation.
func (h *Hub) Subscribe() (<-chan int, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan int, 8)
	ch <- h.last
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish pushes count to every subscriber. A subscriber that cannot
// keep up is skipped; badges are refresh-only and the next publish
// catches them up.
func (h *Hub) Publish(count int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = count
	for _, ch := range h.subs {
		select {
		case ch <- count:
		default:
		}
	}
}

// Count is the most recently published item count.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
