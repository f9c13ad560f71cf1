package transport

import (
	"strings"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/shopspring/decimal"
)

type AddItemRequest struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  *int             `json:"quantity"`
	Image     *string          `json:"image"`
}

// MissingFields lists every required field that is absent, in a stable order.
func (r *AddItemRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.ProductID) == "" {
		missing = append(missing, "productId")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Price == nil {
		missing = append(missing, "price")
	}
	return missing
}

func (r *AddItemRequest) Item() models.CartItem {
	it := models.CartItem{
		ProductID: strings.TrimSpace(r.ProductID),
		Name:      r.Name,
		ImageRef:  r.Image,
	}
	if r.Price != nil {
		it.UnitPrice = *r.Price
	}
	return it
}

// Units defaults an omitted quantity to one.
func (r *AddItemRequest) Units() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type OrdersPage struct {
	Orders []models.Order `json:"orders"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
}

type ErrorResponse struct {
	Error  string   `json:"error"`
	Field  string   `json:"field,omitempty"`
	Fields []string `json:"fields,omitempty"`
}
