package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

// OrderLine is one frozen row of a completed order. UnitPrice and LineTotal
// are rounded to cents for display; the stored values keep full precision.
type OrderLine struct {
	LineItemID uuid.UUID       `json:"line_item_id"`
	ItemID     uuid.UUID       `json:"item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// OrderConfirmation is returned by a successful checkout.
type OrderConfirmation struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      int64           `json:"user_id"`
	Lines       []OrderLine     `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	PlacedAt    time.Time       `json:"placed_at"`
	DeliveryETA time.Time       `json:"delivery_eta"`
}

// OrderList is one page of completed orders, newest first.
type OrderList struct {
	Orders     []OrderConfirmation `json:"orders"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

func confirmationFromModel(order models.Order) OrderConfirmation {
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, row := range order.Lines {
		lines = append(lines, lineFromModel(row))
	}
	return OrderConfirmation{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Lines:       lines,
		Total:       order.Total,
		PlacedAt:    order.CreatedAt,
		DeliveryETA: order.DeliveryETA,
	}
}

func lineFromModel(row models.LineItem) OrderLine {
	line := OrderLine{
		LineItemID: row.ID,
		ItemID:     row.ItemID,
		Quantity:   row.Quantity,
	}
	if row.Item != nil {
		line.Name = row.Item.Name
	}
	if row.UnitPrice != nil {
		line.UnitPrice = catalog.RoundMoney(*row.UnitPrice)
	}
	if row.LineTotal != nil {
		line.LineTotal = catalog.RoundMoney(*row.LineTotal)
	}
	return line
}
