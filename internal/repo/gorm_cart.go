package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/shopping/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartStore serializes updates of one customer with a row lock on the
// carts table. Items are rewritten as a whole inside the same transaction.
type GormCartStore struct {
	DB *gorm.DB
}

func (r *GormCartStore) Get(ctx context.Context, customerID string) ([]models.CartItem, error) {
	return loadCartItems(r.DB.WithContext(ctx), customerID)
}

// GetVersioned share-locks the carts row so the items and the version come
// from the same committed write.
func (r *GormCartStore) GetVersioned(ctx context.Context, customerID string) ([]models.CartItem, int64, error) {
	var (
		items   []models.CartItem
		version int64
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row cartRow
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("customer_id = ?", customerID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			items = []models.CartItem{}
			return nil
		}
		if err != nil {
			return err
		}

		version = row.Version
		items, err = loadCartItems(tx, customerID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, version, nil
}

func (r *GormCartStore) Update(ctx context.Context, customerID string, fn MutateFunc) ([]models.CartItem, error) {
	var out []models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		row := cartRow{CustomerID: customerID, CreatedAt: now, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ?", customerID).
			First(&row).Error; err != nil {
			return err
		}

		current, err := loadCartItems(tx, customerID)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		if err := tx.Where("customer_id = ?", customerID).Delete(&cartItemRow{}).Error; err != nil {
			return err
		}
		if len(next) > 0 {
			rows := cartItemsToRows(customerID, next)
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&cartRow{}).
			Where("customer_id = ?", customerID).
			Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": now}).Error; err != nil {
			return err
		}

		out = models.CloneItems(next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.CartItem{}
	}
	return out, nil
}

func (r *GormCartStore) Clear(ctx context.Context, customerID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", customerID).Delete(&cartItemRow{}).Error; err != nil {
			return err
		}
		return tx.Model(&cartRow{}).
			Where("customer_id = ?", customerID).
			Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": time.Now().UTC()}).Error
	})
}

func (r *GormCartStore) ClearVersion(ctx context.Context, customerID string, version int64) (bool, error) {
	cleared := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&cartRow{}).
			Where("customer_id = ? AND version = ?", customerID, version).
			Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&cartRow{}).Where("customer_id = ?", customerID).Count(&n).Error; err != nil {
				return err
			}
			// an absent cart is empty at version 0
			cleared = n == 0 && version == 0
			return nil
		}

		cleared = true
		return tx.Where("customer_id = ?", customerID).Delete(&cartItemRow{}).Error
	})
	if err != nil {
		return false, err
	}
	return cleared, nil
}

func loadCartItems(db *gorm.DB, customerID string) ([]models.CartItem, error) {
	var rows []cartItemRow
	if err := db.Where("customer_id = ?", customerID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return cartItemsFromRows(rows), nil
}
