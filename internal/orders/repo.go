package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	"github.com/angelmondragon/pieshop-backend/pkg/pagination"
)

// Repository persists order headers and completes line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided DB.
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

// CreateOrder inserts the order header.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Lines").Create(order).Error
}

// CompleteLine is the frozen state written onto a pending row at checkout.
type CompleteLine struct {
	LineItemID  uuid.UUID
	OrderID     uuid.UUID
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	CompletedAt time.Time
}

// CompletePending flips one pending row to completed. It reports the number
// of rows changed, which is zero when the row is no longer pending.
func (r *Repository) CompletePending(ctx context.Context, line CompleteLine) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Where("id = ? AND status = ?", line.LineItemID, enums.LineItemStatusPending).
		Updates(map[string]any{
			"status":       enums.LineItemStatusCompleted,
			"order_id":     line.OrderID,
			"unit_price":   line.UnitPrice,
			"line_total":   line.LineTotal,
			"completed_at": line.CompletedAt,
		})
	return res.RowsAffected, res.Error
}

// ListCompleted returns up to limit orders older than the cursor, newest
// first, with their lines and items loaded.
func (r *Repository) ListCompleted(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Lines.Item").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
