package admins

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

// Repository exposes persistence operations for operator accounts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an admins repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID loads the admin row of a chat user.
func (r *Repository) FindByUserID(ctx context.Context, userID int64) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// Create inserts a new admin row.
func (r *Repository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// Save persists every column of an existing row.
func (r *Repository) Save(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Save(admin).Error
}

// DeleteByUserID removes the admin row and reports how many rows went away.
func (r *Repository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Admin{})
	return res.RowsAffected, res.Error
}

// List returns every admin in creation order.
func (r *Repository) List(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.WithContext(ctx).Order("created_at ASC").Order("user_id ASC").Find(&admins).Error
	return admins, err
}
