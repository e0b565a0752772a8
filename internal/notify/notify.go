// Package notify carries transient user-facing notifications from the
// cart and checkout flow to whatever surface displays them.
package notify

import (
	"log"
	"sync"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// DefaultDisplayMS is how long a notification should stay visible.
const DefaultDisplayMS = 5000

type Notification struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	DisplayMS int    `json:"display_ms"`
}

func New(level Level, message string) Notification {
	return Notification{Level: level, Message: message, DisplayMS: DefaultDisplayMS}
}

type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Hub logs every notification and fans it out to subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan Notification
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Notification)}
}

func (h *Hub) Subscribe() (<-chan Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Notification, 8)
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

func (h *Hub) Notify(n Notification) {
	log.Printf("notification [%s]: %s", n.Level, n.Message)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
