package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is the header written by a successful checkout.
type Order struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID      int64           `gorm:"column:user_id;not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	DeliveryETA time.Time       `gorm:"column:delivery_eta;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	Lines       []LineItem      `gorm:"foreignKey:OrderID;references:ID"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
