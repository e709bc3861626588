package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

// LineItem is a cart row while pending and an order row once completed.
// UnitPrice, LineTotal, OrderID and CompletedAt are written exactly once,
// by checkout.
type LineItem struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID      int64                `gorm:"column:user_id;not null"`
	ItemID      uuid.UUID            `gorm:"column:item_id;type:uuid;not null"`
	Item        *Item                `gorm:"foreignKey:ItemID;references:ID"`
	Quantity    int                  `gorm:"column:quantity;not null"`
	Status      enums.LineItemStatus `gorm:"column:status;type:line_item_status;not null;default:'pending'"`
	OrderID     *uuid.UUID           `gorm:"column:order_id;type:uuid"`
	UnitPrice   *decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,6)"`
	LineTotal   *decimal.Decimal     `gorm:"column:line_total;type:numeric(14,6)"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	CompletedAt *time.Time           `gorm:"column:completed_at"`
}

func (LineItem) TableName() string { return "line_items" }

func (l *LineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
