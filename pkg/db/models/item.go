package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

// Item is a purchasable catalog entry. Discount and IsPromoted are owned by
// the promotion rotation; request handlers only read them.
type Item struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name        string             `gorm:"column:name;not null"`
	Description string             `gorm:"column:description;not null"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	Category    enums.ItemCategory `gorm:"column:category;type:item_category;not null"`
	ImageURL    *string            `gorm:"column:image_url"`
	Discount    decimal.Decimal    `gorm:"column:discount;type:numeric(5,4);not null;default:0"`
	IsPromoted  bool               `gorm:"column:is_promoted;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
