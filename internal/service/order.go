package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Skotchmaster/shopping/internal/events"
	"github.com/Skotchmaster/shopping/internal/logging"
	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/Skotchmaster/shopping/internal/repo"
	"github.com/Skotchmaster/shopping/internal/util"
	"github.com/google/uuid"
)

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event events.Envelope) error
}

type OrderOptions struct {
	// RoutingKey selects the downstream binding for ORDER_CREATED events.
	RoutingKey     string
	PublishTimeout time.Duration
	ClearAttempts  int
	ClearBackoff   time.Duration
	ClearTimeout   time.Duration
}

func (o *OrderOptions) setDefaults() {
	if o.RoutingKey == "" {
		o.RoutingKey = "NOTIFICATION_SERVICE"
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 5 * time.Second
	}
	if o.ClearAttempts <= 0 {
		o.ClearAttempts = 5
	}
	if o.ClearBackoff <= 0 {
		o.ClearBackoff = 50 * time.Millisecond
	}
	if o.ClearTimeout <= 0 {
		o.ClearTimeout = 3 * time.Second
	}
}

type OrderService struct {
	carts     repo.CartStore
	orders    repo.OrderStore
	publisher EventPublisher
	locks     *CustomerLocks
	opts      OrderOptions

	now   func() time.Time
	newID func() uuid.UUID

	notificationFailures atomic.Int64
	clearFailures        atomic.Int64
}

func NewOrderService(carts repo.CartStore, orders repo.OrderStore, publisher EventPublisher, locks *CustomerLocks, opts OrderOptions) *OrderService {
	opts.setDefaults()
	return &OrderService{
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		locks:     locks,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.New,
	}
}

// CreateOrder turns the customer's cart into a pending order. The cart read,
// the order insert and the cart clear run under the customer's lock; the
// ORDER_CREATED event is published after the lock is released and its failure
// never fails the call.
//
// The lock only serializes callers of this process. Across instances the order
// store accepts one order per cart version, so a snapshot is ordered at most
// once.
func (s *OrderService) CreateOrder(ctx context.Context, customerID string) (*models.Order, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	l := logging.FromContext(ctx).With("svc", "order.create", "customer_id", customerID)

	unlock := s.locks.Lock(customerID)
	order, err := s.placeOrder(ctx, l, customerID)
	unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ctx, l, order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, l *slog.Logger, customerID string) (*models.Order, error) {
	items, version, err := s.carts.GetVersioned(ctx, customerID)
	if err != nil {
		l.Error("create_order_error", "reason", "cart read failed", "error", err)
		return nil, storage("cart.get", err)
	}
	if len(items) == 0 {
		return nil, &Error{Kind: ErrEmptyCart, Field: "cart", Detail: fmt.Sprintf("customer %q has no items", customerID)}
	}
	for i, it := range items {
		if err := validateLine(i, it); err != nil {
			l.Warn("create_order_error", "reason", "invalid cart line", "error", err)
			return nil, err
		}
	}

	snapshot := models.CloneItems(items)
	order := &models.Order{
		OrderID:     s.newID(),
		CustomerID:  customerID,
		Items:       snapshot,
		TotalAmount: models.Total(snapshot),
		Status:      models.OrderStatusPending,
		CreatedAt:   s.now().UTC(),
		CartVersion: version,
	}

	err = s.orders.Create(ctx, order)
	if errors.Is(err, repo.ErrConflict) {
		l.Warn("create_order_error", "reason", "cart version already ordered", "cart_version", version)
		return nil, &Error{Kind: ErrEmptyCart, Field: "cart", Detail: "its items were already ordered by a concurrent request"}
	}
	if err != nil {
		l.Error("create_order_error", "reason", "order insert failed", "error", err)
		return nil, storage("order.create", err)
	}
	l.Info("order_created", "order_id", order.OrderID, "total", order.TotalAmount.String())

	// The order is durable from here on: the clear must not observe the
	// caller's cancellation.
	s.clearCart(context.WithoutCancel(ctx), l, order)
	return order, nil
}

// clearCart empties the cart the order was taken from. When the cart changed
// after the snapshot, only the ordered quantities are taken out of it.
func (s *OrderService) clearCart(ctx context.Context, l *slog.Logger, order *models.Order) {
	backoff := s.opts.ClearBackoff
	for attempt := 1; attempt <= s.opts.ClearAttempts; attempt++ {
		clearCtx, cancel := context.WithTimeout(ctx, s.opts.ClearTimeout)
		cleared, err := s.carts.ClearVersion(clearCtx, order.CustomerID, order.CartVersion)
		if err == nil && !cleared {
			l.Warn("cart_changed_after_order", "order_id", order.OrderID, "cart_version", order.CartVersion)
			err = s.removeOrdered(clearCtx, order)
			if err != nil {
				// a failed subtraction is not retried
				cancel()
				break
			}
		}
		cancel()
		if err == nil {
			return
		}

		l.Warn("cart_clear_retry", "order_id", order.OrderID, "attempt", attempt, "error", err)
		if attempt < s.opts.ClearAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	s.clearFailures.Add(1)
	l.Error("cart_clear_failed", "order_id", order.OrderID, "attempts", s.opts.ClearAttempts)
}

func (s *OrderService) removeOrdered(ctx context.Context, order *models.Order) error {
	_, err := s.carts.Update(ctx, order.CustomerID, func(items []models.CartItem) ([]models.CartItem, error) {
		for _, ordered := range order.Items {
			i := models.IndexOf(items, ordered.ProductID)
			if i < 0 {
				continue
			}
			items[i].Quantity -= ordered.Quantity
			if items[i].Quantity <= 0 {
				items = append(items[:i], items[i+1:]...)
			}
		}
		return items, nil
	})
	return err
}

func (s *OrderService) notify(ctx context.Context, l *slog.Logger, order *models.Order) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, s.opts.RoutingKey, events.NewOrderCreated(order)); err != nil {
		s.notificationFailures.Add(1)
		l.Warn("order_notification_failed", "order_id", order.OrderID,
			"error", &Error{Kind: ErrNotification, Field: "event", Err: err})
		return
	}
	l.Info("order_notification_sent", "order_id", order.OrderID, "routing_key", s.opts.RoutingKey)
}

// GetOrder returns NotFound for orders owned by another customer.
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, invalid("orderId", "must be a UUID, got %q", orderID)
	}

	order, err := s.orders.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFound("order", orderID)
	}
	if err != nil {
		logging.FromContext(ctx).Error("get_order_error", "order_id", orderID, "error", err)
		return nil, storage("order.get", err)
	}
	if order.CustomerID != customerID {
		return nil, notFound("order", orderID)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, customerID string, page, size int) ([]models.Order, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}

	offset, limit := util.Calculate(page, size)
	orders, err := s.orders.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		logging.FromContext(ctx).Error("list_orders_error", "customer_id", customerID, "error", err)
		return nil, storage("order.list", err)
	}
	return orders, nil
}

func (s *OrderService) NotificationFailures() int64 {
	return s.notificationFailures.Load()
}

func (s *OrderService) CartClearFailures() int64 {
	return s.clearFailures.Load()
}

func validateLine(i int, it models.CartItem) error {
	switch {
	case strings.TrimSpace(it.ProductID) == "":
		return &Error{Kind: ErrValidation, Field: fmt.Sprintf("items[%d].productId", i), Detail: "is empty"}
	case it.Quantity < 1:
		return &Error{Kind: ErrValidation, Field: fmt.Sprintf("items[%d].quantity", i), Detail: fmt.Sprintf("must be at least 1, got %d", it.Quantity)}
	}
	if err := models.CheckUnitPrice(it.UnitPrice); err != nil {
		return &Error{Kind: ErrValidation, Field: fmt.Sprintf("items[%d].price", i), Detail: "got " + it.UnitPrice.String(), Err: err}
	}
	return nil
}
