package store

import (
	"context"
	"sync"

	"github.com/fjod/cart-widget/internal/domain"
)

// MemoryStore is an in-process store for development and tests. Contents
// do not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items []domain.LineItem
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) ([]domain.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.saved {
		return nil, ErrNotFound
	}

	items := make([]domain.LineItem, len(m.items))
	copy(items, m.items)
	return items, nil
}

func (m *MemoryStore) Save(_ context.Context, items []domain.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]domain.LineItem, len(items))
	copy(m.items, items)
	m.saved = true
	return nil
}
