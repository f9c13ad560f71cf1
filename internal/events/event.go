package events

import (
	"time"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderCreatedType = "ORDER_CREATED"

	// SchemaVersion is bumped on incompatible changes to an event body.
	SchemaVersion = 1
)

type Envelope struct {
	EventID       uuid.UUID `json:"eventId"`
	EventType     string    `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
	Data          any       `json:"data"`
}

type OrderCreated struct {
	CustomerID  string            `json:"customerId"`
	OrderID     uuid.UUID         `json:"orderId"`
	Items       []models.CartItem `json:"items"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
}

func NewOrderCreated(order *models.Order) Envelope {
	return Envelope{
		EventID:       uuid.New(),
		EventType:     OrderCreatedType,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Data: OrderCreated{
			CustomerID:  order.CustomerID,
			OrderID:     order.OrderID,
			Items:       models.CloneItems(order.Items),
			TotalAmount: order.TotalAmount,
		},
	}
}
