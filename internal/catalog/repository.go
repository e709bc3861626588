package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

// Repository exposes persistence operations for catalog items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a single item.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByCategory returns the items of a category in insertion order.
func (r *Repository) ListByCategory(ctx context.Context, category enums.ItemCategory) ([]models.Item, error) {
	var items []models.Item
	err := r.ordered(ctx).
		Where("category = ?", category).
		Find(&items).Error
	return items, err
}

// ListAll returns every item in insertion order.
func (r *Repository) ListAll(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.ordered(ctx).Find(&items).Error
	return items, err
}

// ListPromoted returns the currently promoted items.
func (r *Repository) ListPromoted(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.ordered(ctx).
		Where("is_promoted = ?", true).
		Find(&items).Error
	return items, err
}

// ApplyPromotion discounts one item and flags it as promoted.
// gorm.ErrRecordNotFound is returned when the id matches nothing.
func (r *Repository) ApplyPromotion(ctx context.Context, id uuid.UUID, discount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"discount":    discount,
			"is_promoted": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearAllPromotions resets the discount and promoted flag of every item
// still carrying one and reports how many rows changed.
func (r *Repository) ClearAllPromotions(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("is_promoted = ? OR discount <> ?", true, decimal.Zero).
		Updates(map[string]any{
			"discount":    decimal.Zero,
			"is_promoted": false,
		})
	return res.RowsAffected, res.Error
}

// Count returns the number of catalog items.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Item{}).Count(&n).Error
	return n, err
}

func (r *Repository) ordered(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
}
