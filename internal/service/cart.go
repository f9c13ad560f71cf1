package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/shopping/internal/logging"
	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/Skotchmaster/shopping/internal/repo"
	"golang.org/x/sync/singleflight"
)

// errUnchanged aborts a store update that would write the same items back.
var errUnchanged = errors.New("cart unchanged")

// cartReadTimeout bounds a shared read once it no longer follows its caller.
const cartReadTimeout = 5 * time.Second

type CartService struct {
	carts repo.CartStore
	locks *CustomerLocks
	sfg   singleflight.Group
}

func NewCartService(carts repo.CartStore, locks *CustomerLocks) *CartService {
	return &CartService{
		carts: carts,
		locks: locks,
	}
}

func (s *CartService) GetCart(ctx context.Context, customerID string) (models.Cart, error) {
	if err := requireCustomer(customerID); err != nil {
		return models.Cart{}, err
	}

	// Reads only join a flight that started after the last completed write,
	// and the flight outlives any single caller's cancellation.
	key := customerID + "#" + strconv.FormatUint(s.locks.Generation(), 10)
	ch := s.sfg.DoChan(key, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartReadTimeout)
		defer cancel()
		return s.carts.Get(readCtx, customerID)
	})

	select {
	case <-ctx.Done():
		return models.Cart{}, storage("cart.get", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			logging.FromContext(ctx).Error("get_cart_error", "customer_id", customerID, "error", res.Err)
			return models.Cart{}, storage("cart.get", res.Err)
		}
		// NewCart copies, so callers sharing a flight never share item memory.
		return models.NewCart(customerID, res.Val.([]models.CartItem)), nil
	}
}

// AddItem adds quantity units of item. An item already in the cart keeps its
// stored name and price and only accumulates quantity.
func (s *CartService) AddItem(ctx context.Context, customerID string, item models.CartItem, quantity int) (models.Cart, error) {
	if err := requireCustomer(customerID); err != nil {
		return models.Cart{}, err
	}
	if strings.TrimSpace(item.ProductID) == "" {
		return models.Cart{}, invalid("productId", "is required")
	}
	if err := models.CheckUnitPrice(item.UnitPrice); err != nil {
		return models.Cart{}, &Error{Kind: ErrInvalidInput, Field: "price", Detail: "got " + item.UnitPrice.String(), Err: err}
	}
	if quantity < 1 {
		return models.Cart{}, invalid("quantity", "must be at least 1, got %d", quantity)
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	items, err := s.carts.Update(ctx, customerID, func(items []models.CartItem) ([]models.CartItem, error) {
		if i := models.IndexOf(items, item.ProductID); i >= 0 {
			items[i].Quantity += quantity
			return items, nil
		}
		line := models.CloneItems([]models.CartItem{item})[0]
		line.Quantity = quantity
		return append(items, line), nil
	})
	if err != nil {
		return models.Cart{}, s.mapStoreErr(ctx, "cart.add_item", customerID, err)
	}
	return models.NewCart(customerID, items), nil
}

// RemoveItem is idempotent: removing an absent product returns the cart as is.
func (s *CartService) RemoveItem(ctx context.Context, customerID, productID string) (models.Cart, error) {
	if err := requireCustomer(customerID); err != nil {
		return models.Cart{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return models.Cart{}, invalid("productId", "is required")
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	items, err := s.carts.Update(ctx, customerID, func(items []models.CartItem) ([]models.CartItem, error) {
		i := models.IndexOf(items, productID)
		if i < 0 {
			return nil, errUnchanged
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if errors.Is(err, errUnchanged) {
		items, err = s.carts.Get(ctx, customerID)
	}
	if err != nil {
		return models.Cart{}, s.mapStoreErr(ctx, "cart.remove_item", customerID, err)
	}
	return models.NewCart(customerID, items), nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, customerID, productID string, quantity int) (models.Cart, error) {
	if err := requireCustomer(customerID); err != nil {
		return models.Cart{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return models.Cart{}, invalid("productId", "is required")
	}
	if quantity < 1 {
		return models.Cart{}, invalid("quantity", "must be at least 1, got %d", quantity)
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	items, err := s.carts.Update(ctx, customerID, func(items []models.CartItem) ([]models.CartItem, error) {
		i := models.IndexOf(items, productID)
		if i < 0 {
			return nil, notFound("item", productID)
		}
		items[i].Quantity = quantity
		return items, nil
	})
	if err != nil {
		return models.Cart{}, s.mapStoreErr(ctx, "cart.update_quantity", customerID, err)
	}
	return models.NewCart(customerID, items), nil
}

func (s *CartService) ClearCart(ctx context.Context, customerID string) (models.Cart, error) {
	if err := requireCustomer(customerID); err != nil {
		return models.Cart{}, err
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	if err := s.carts.Clear(ctx, customerID); err != nil {
		return models.Cart{}, s.mapStoreErr(ctx, "cart.clear", customerID, err)
	}
	return models.NewCart(customerID, nil), nil
}

// mapStoreErr passes typed errors raised inside a mutation through and turns
// everything else into a storage failure.
func (s *CartService) mapStoreErr(ctx context.Context, op, customerID string, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	logging.FromContext(ctx).Error("cart_store_error", "op", op, "customer_id", customerID, "error", err)
	return storage(op, err)
}

func requireCustomer(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return invalid("customerId", "is required")
	}
	return nil
}
