package repo

import (
	"time"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type cartRow struct {
	CustomerID string    `gorm:"primaryKey"`
	Version    int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (cartRow) TableName() string {
	return "carts"
}

type cartItemRow struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	CustomerID string          `gorm:"uniqueIndex:idx_customer_product;not null"`
	ProductID  string          `gorm:"uniqueIndex:idx_customer_product;not null"`
	Name       string          `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity   int             `gorm:"not null;check:quantity>0"`
	ImageRef   *string
}

func (cartItemRow) TableName() string {
	return "cart_items"
}

// orderRow allows one order per cart version of a customer, which keeps two
// instances from ordering the same cart snapshot twice.
type orderRow struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	OrderID     uuid.UUID       `gorm:"uniqueIndex;not null"`
	CustomerID  string          `gorm:"index;uniqueIndex:idx_orders_cart_version,priority:1;not null"`
	CartVersion int64           `gorm:"uniqueIndex:idx_orders_cart_version,priority:2;not null"`
	TotalAmount decimal.Decimal `gorm:"type:numeric;not null"`
	Status      string          `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"index;not null"`
	Items       []orderItemRow  `gorm:"foreignKey:OrderRowID"`
}

func (orderRow) TableName() string {
	return "orders"
}

type orderItemRow struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	OrderRowID uint            `gorm:"index;not null"`
	ProductID  string          `gorm:"not null"`
	Name       string          `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity   int             `gorm:"not null;check:quantity>0"`
	ImageRef   *string
}

func (orderItemRow) TableName() string {
	return "order_items"
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&cartRow{}, &cartItemRow{}, &orderRow{}, &orderItemRow{})
}

func cartItemsFromRows(rows []cartItemRow) []models.CartItem {
	items := make([]models.CartItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.CartItem{
			ProductID: r.ProductID,
			Name:      r.Name,
			UnitPrice: r.UnitPrice,
			Quantity:  r.Quantity,
			ImageRef:  r.ImageRef,
		})
	}
	return items
}

func cartItemsToRows(customerID string, items []models.CartItem) []cartItemRow {
	rows := make([]cartItemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, cartItemRow{
			CustomerID: customerID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			ImageRef:   it.ImageRef,
		})
	}
	return rows
}

func orderToRow(o *models.Order) orderRow {
	row := orderRow{
		OrderID:     o.OrderID,
		CustomerID:  o.CustomerID,
		CartVersion: o.CartVersion,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		Items:       make([]orderItemRow, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		row.Items = append(row.Items, orderItemRow{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			ImageRef:  it.ImageRef,
		})
	}
	return row
}

func orderFromRow(row *orderRow) models.Order {
	items := make([]models.CartItem, 0, len(row.Items))
	for _, it := range row.Items {
		items = append(items, models.CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			ImageRef:  it.ImageRef,
		})
	}
	return models.Order{
		OrderID:     row.OrderID,
		CustomerID:  row.CustomerID,
		CartVersion: row.CartVersion,
		Items:       items,
		TotalAmount: row.TotalAmount,
		Status:      models.OrderStatus(row.Status),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}
