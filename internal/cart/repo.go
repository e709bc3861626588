package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

// Repository exposes persistence operations for pending line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
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

// UpsertPending inserts a pending row for (user, item) or adds quantity to the
// existing one. The partial unique index on pending rows makes this a single
// atomic statement, so concurrent adds converge on one row.
func (r *Repository) UpsertPending(ctx context.Context, userID int64, itemID uuid.UUID, quantity int) (*models.LineItem, error) {
	row := &models.LineItem{
		UserID:   userID,
		ItemID:   itemID,
		Quantity: quantity,
		Status:   enums.LineItemStatusPending,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "status = 'pending'"},
			}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("line_items.quantity + excluded.quantity"),
			}),
		}).
		Omit("Item").
		Create(row).Error
	if err != nil {
		return nil, err
	}

	var stored models.LineItem
	err = r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ? AND item_id = ? AND status = ?", userID, itemID, enums.LineItemStatusPending).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindPending returns the user's pending rows in creation order with items loaded.
func (r *Repository) FindPending(ctx context.Context, userID int64) ([]models.LineItem, error) {
	var rows []models.LineItem
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ? AND status = ?", userID, enums.LineItemStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// DeletePending removes every pending row of the user.
func (r *Repository) DeletePending(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.LineItemStatusPending).
		Delete(&models.LineItem{})
	return res.RowsAffected, res.Error
}

// ListAllPending returns pending rows across users ordered by user then creation.
func (r *Repository) ListAllPending(ctx context.Context) ([]models.LineItem, error) {
	var rows []models.LineItem
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("status = ?", enums.LineItemStatusPending).
		Order("user_id ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
