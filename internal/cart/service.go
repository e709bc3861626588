package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/internal/locks"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

// Service exposes the per-user cart ledger.
type Service interface {
	AddItem(ctx context.Context, userID int64, itemID uuid.UUID, quantity int) (*models.LineItem, error)
	GetCart(ctx context.Context, userID int64) ([]models.LineItem, error)
	ComputeTotal(ctx context.Context, userID int64) (decimal.Decimal, error)
	ClearCart(ctx context.Context, userID int64) error
	ListPendingCarts(ctx context.Context) ([]PendingCart, error)
}

// PendingCart groups one user's pending rows for the admin view.
type PendingCart struct {
	UserID int64
	Lines  []models.LineItem
	Total  decimal.Decimal
}

type service struct {
	repo   LineItemRepository
	items  itemFinder
	locker locks.Locker
	logg   *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo LineItemRepository, items itemFinder, locker locks.Locker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item finder required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		items:  items,
		locker: locker,
		logg:   logg,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID int64, itemID uuid.UUID, quantity int) (*models.LineItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": quantity})
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found").
				WithDetails(map[string]any{"item_id": itemID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}

	row, err := s.repo.UpsertPending(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add item to cart")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":  userID,
		"item_id":  itemID.String(),
		"quantity": row.Quantity,
	})
	s.logg.Debug(logCtx, "cart line upserted")
	return row, nil
}

func (s *service) GetCart(ctx context.Context, userID int64) ([]models.LineItem, error) {
	rows, err := s.repo.FindPending(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return rows, nil
}

// ComputeTotal prices the pending rows at current catalog prices, so active
// promotions are reflected until checkout.
func (s *service) ComputeTotal(ctx context.Context, userID int64) (decimal.Decimal, error) {
	rows, err := s.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(rows), nil
}

func (s *service) ClearCart(ctx context.Context, userID int64) error {
	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	removed, err := s.repo.DeletePending(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if removed > 0 {
		s.logg.Info(s.logg.WithField(s.logg.WithUserID(ctx, userID), "removed", removed), "cart cleared")
	}
	return nil
}

func (s *service) ListPendingCarts(ctx context.Context) ([]PendingCart, error) {
	rows, err := s.repo.ListAllPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending carts")
	}
	carts := make([]PendingCart, 0)
	for _, row := range rows {
		if n := len(carts); n == 0 || carts[n-1].UserID != row.UserID {
			carts = append(carts, PendingCart{UserID: row.UserID})
		}
		current := &carts[len(carts)-1]
		current.Lines = append(current.Lines, row)
	}
	for i := range carts {
		carts[i].Total = Total(carts[i].Lines)
	}
	return carts, nil
}

// Total sums full-precision line amounts and rounds once. Rows without a
// loaded item contribute nothing.
func Total(rows []models.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, row := range rows {
		if row.Item == nil {
			continue
		}
		sum = sum.Add(catalog.LineAmount(*row.Item, row.Quantity))
	}
	return catalog.RoundMoney(sum)
}
