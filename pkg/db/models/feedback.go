package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feedback struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Text      string    `gorm:"column:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Feedback) TableName() string { return "feedback" }

func (f *Feedback) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
