package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin grants a chat user access to the cross-user order and cart views.
type Admin struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex"`
	Username  *string   `gorm:"column:username"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Admin) TableName() string { return "admins" }

func (a *Admin) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
