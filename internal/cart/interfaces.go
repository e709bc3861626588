package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

// LineItemRepository defines the persistence surface required by the cart service.
type LineItemRepository interface {
	UpsertPending(ctx context.Context, userID int64, itemID uuid.UUID, quantity int) (*models.LineItem, error)
	FindPending(ctx context.Context, userID int64) ([]models.LineItem, error)
	DeletePending(ctx context.Context, userID int64) (int64, error)
	ListAllPending(ctx context.Context) ([]models.LineItem, error)
}

type itemFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}
