package chat

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pieshop-backend/internal/cart"
	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

// ItemView is a catalog item with its display price.
type ItemView struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"image_url,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	IsPromoted  bool            `json:"is_promoted"`
}

// CartLineView is one pending line at live prices.
type CartLineView struct {
	LineItemID uuid.UUID       `json:"line_item_id"`
	ItemID     uuid.UUID       `json:"item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// CartView is a user's pending cart with its live total.
type CartView struct {
	UserID int64           `json:"user_id"`
	Lines  []CartLineView  `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

func itemView(item models.Item) ItemView {
	return ItemView{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category.String(),
		ImageURL:    item.ImageURL,
		BasePrice:   item.Price,
		Price:       catalog.DisplayPrice(item),
		Discount:    item.Discount,
		IsPromoted:  item.IsPromoted,
	}
}

func itemViews(items []models.Item) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView(item))
	}
	return views
}

func lineView(row models.LineItem) CartLineView {
	line := CartLineView{
		LineItemID: row.ID,
		ItemID:     row.ItemID,
		Quantity:   row.Quantity,
	}
	if row.Item != nil {
		line.Name = row.Item.Name
		line.UnitPrice = catalog.DisplayPrice(*row.Item)
		line.LineTotal = catalog.RoundMoney(catalog.LineAmount(*row.Item, row.Quantity))
	}
	return line
}

func cartView(userID int64, rows []models.LineItem) CartView {
	lines := make([]CartLineView, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineView(row))
	}
	return CartView{UserID: userID, Lines: lines, Total: cart.Total(rows)}
}
