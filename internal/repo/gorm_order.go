package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormOrderStore struct {
	DB *gorm.DB
}

// Create needs a DB opened with TranslateError so that unique violations
// surface as gorm.ErrDuplicatedKey.
func (r *GormOrderStore) Create(ctx context.Context, order *models.Order) error {
	row := orderToRow(order)
	err := r.DB.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (r *GormOrderStore) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var row orderRow
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("order_id = ?", orderID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	order := orderFromRow(&row)
	return &order, nil
}

func (r *GormOrderStore) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]models.Order, error) {
	var rows []orderRow
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, orderFromRow(&rows[i]))
	}
	return orders, nil
}
