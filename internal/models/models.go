package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

type CartItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageRef  *string         `json:"image,omitempty"`
}

// Cart is a read view of a customer's cart. Total is derived from Items and
// is never persisted.
type Cart struct {
	CustomerID string          `json:"customerId"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

type Order struct {
	OrderID     uuid.UUID       `json:"orderId"`
	CustomerID  string          `json:"customerId"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`

	// CartVersion is the cart revision the order was taken from.
	CartVersion int64 `json:"-"`
}

// PriceScale and MaxUnitPrice bound what the order tables can store exactly.
const PriceScale = 2

var (
	MaxUnitPrice = decimal.New(1, 10)

	ErrNegativePrice = errors.New("must not be negative")
	ErrPriceScale    = fmt.Errorf("must have at most %d decimal places", PriceScale)
	ErrPriceTooLarge = fmt.Errorf("must be less than %s", MaxUnitPrice)
)

// CheckUnitPrice reports why p cannot be stored as a unit price.
func CheckUnitPrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return ErrNegativePrice
	case !p.Equal(p.Truncate(PriceScale)):
		return ErrPriceScale
	case p.GreaterThanOrEqual(MaxUnitPrice):
		return ErrPriceTooLarge
	}
	return nil
}

func NewCart(customerID string, items []CartItem) Cart {
	items = CloneItems(items)
	if items == nil {
		items = []CartItem{}
	}
	return Cart{
		CustomerID: customerID,
		Items:      items,
		Total:      Total(items),
	}
}

func Total(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (it CartItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// CloneItems deep-copies items so that the result shares no memory with the
// source, including the optional image reference.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.ImageRef != nil {
			ref := *it.ImageRef
			out[i].ImageRef = &ref
		}
	}
	return out
}

func IndexOf(items []CartItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
