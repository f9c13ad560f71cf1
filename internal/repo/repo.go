package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when optimistic retries are exhausted or when an
	// order for the same cart version already exists.
	ErrConflict = errors.New("concurrent modification")
)

// MutateFunc receives a private copy of the current items and returns the
// items to store. Returning an error aborts the update without writing.
type MutateFunc func(items []models.CartItem) ([]models.CartItem, error)

// CartStore keeps one item list per customer. Update must apply fn atomically
// with respect to other updates of the same customer.
//
// Every successful write advances the cart version, and versions of a
// customer never repeat. An absent cart has version 0.
type CartStore interface {
	Get(ctx context.Context, customerID string) ([]models.CartItem, error)
	// GetVersioned returns the items together with the version they belong to.
	GetVersioned(ctx context.Context, customerID string) ([]models.CartItem, int64, error)
	Update(ctx context.Context, customerID string, fn MutateFunc) ([]models.CartItem, error)
	Clear(ctx context.Context, customerID string) error
	// ClearVersion empties the cart only while it is still at version and
	// reports whether it did.
	ClearVersion(ctx context.Context, customerID string, version int64) (bool, error)
}

// OrderStore is append-only. Create returns ErrConflict when the customer
// already has an order for the same cart version.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]models.Order, error)
}
