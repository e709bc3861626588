package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

// Service is the read side of the catalog. Promotion writes go through the
// Repository inside the rotation transaction.
type Service interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListItems(ctx context.Context, category enums.ItemCategory) ([]models.Item, error)
	ListAll(ctx context.Context) ([]models.Item, error)
	ListPromoted(ctx context.Context) ([]models.Item, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapItemError(err, "load item")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, category enums.ItemCategory) ([]models.Item, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]any{"category": category.String()})
	}
	items, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog")
	}
	return items, nil
}

func (s *service) ListPromoted(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListPromoted(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promoted items")
	}
	return items, nil
}

func mapItemError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
