package store

import (
	"context"
	"errors"

	"github.com/fjod/cart-widget/internal/domain"
)

// Store persists the cart as a whole. Writes are wholesale snapshots of
// the full line-item sequence; there are no partial or delta writes.
// Consumers define this interface, not the backing implementations.
type Store interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Save(ctx context.Context, items []domain.LineItem) error
}

// ErrNotFound is returned by Load when no cart has been saved yet.
// Callers treat it as an empty cart, not a failure.
var ErrNotFound = errors.New("cart not found")
