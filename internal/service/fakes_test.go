package service

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/shopping/internal/events"
	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/Skotchmaster/shopping/internal/repo"
	"github.com/google/uuid"
)

// fakeCartStore is deliberately not atomic: Update reads, pauses, then writes,
// so any missing serialization above it shows up as lost updates.
type fakeCartStore struct {
	mu       sync.Mutex
	carts    map[string][]models.CartItem
	versions map[string]int64

	getErr     error
	updateErr  error
	clearErrs  []error // consumed one per Clear or ClearVersion call
	clearCalls int
	updates    int
	pause      time.Duration

	// afterGet runs once a read has taken its snapshot, outside the mutex.
	afterGet func(ctx context.Context)
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		carts:    make(map[string][]models.CartItem),
		versions: make(map[string]int64),
	}
}

func (f *fakeCartStore) Get(ctx context.Context, customerID string) ([]models.CartItem, error) {
	items, _, err := f.GetVersioned(ctx, customerID)
	return items, err
}

func (f *fakeCartStore) GetVersioned(ctx context.Context, customerID string) ([]models.CartItem, int64, error) {
	f.mu.Lock()
	if f.getErr != nil {
		f.mu.Unlock()
		return nil, 0, f.getErr
	}
	items := models.CloneItems(f.carts[customerID])
	if items == nil {
		items = []models.CartItem{}
	}
	version := f.versions[customerID]
	hook := f.afterGet
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return items, version, nil
}

func (f *fakeCartStore) Update(_ context.Context, customerID string, fn repo.MutateFunc) ([]models.CartItem, error) {
	f.mu.Lock()
	if f.updateErr != nil {
		f.mu.Unlock()
		return nil, f.updateErr
	}
	current := models.CloneItems(f.carts[customerID])
	f.mu.Unlock()

	if f.pause > 0 {
		time.Sleep(f.pause)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.carts[customerID] = models.CloneItems(next)
	f.versions[customerID]++
	return models.CloneItems(next), nil
}

func (f *fakeCartStore) Clear(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextClearErr(); err != nil {
		return err
	}
	if _, ok := f.carts[customerID]; ok {
		f.carts[customerID] = []models.CartItem{}
		f.versions[customerID]++
	}
	return nil
}

func (f *fakeCartStore) ClearVersion(_ context.Context, customerID string, version int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextClearErr(); err != nil {
		return false, err
	}
	if f.versions[customerID] != version {
		return false, nil
	}
	if _, ok := f.carts[customerID]; ok {
		f.carts[customerID] = []models.CartItem{}
		f.versions[customerID]++
	}
	return true, nil
}

// nextClearErr must be called with f.mu held.
func (f *fakeCartStore) nextClearErr() error {
	f.clearCalls++
	if len(f.clearErrs) == 0 {
		return nil
	}
	err := f.clearErrs[0]
	f.clearErrs = f.clearErrs[1:]
	return err
}

// put replaces the cart the way a write from another instance would.
func (f *fakeCartStore) put(customerID string, items ...models.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[customerID] = models.CloneItems(items)
	f.versions[customerID]++
}

func (f *fakeCartStore) items(customerID string) []models.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.CloneItems(f.carts[customerID])
}

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    []models.Order
	createErr error
	getErr    error
	onCreate  func()

	listLimit, listOffset int
}

// Create enforces one order per (customer, cart version) like the SQL store.
func (f *fakeOrderStore) Create(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, o := range f.orders {
		if o.CustomerID == order.CustomerID && o.CartVersion == order.CartVersion {
			return repo.ErrConflict
		}
	}
	stored := *order
	stored.Items = models.CloneItems(order.Items)
	f.orders = append(f.orders, stored)
	if f.onCreate != nil {
		f.onCreate()
	}
	return nil
}

func (f *fakeOrderStore) Get(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, o := range f.orders {
		if o.OrderID == orderID {
			out := o
			return &out, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeOrderStore) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listLimit, f.listOffset = limit, offset
	var out []models.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type publishCall struct {
	routingKey string
	event      events.Envelope
	ctxErr     error
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, event events.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{routingKey: routingKey, event: event, ctxErr: ctx.Err()})
	return f.err
}
