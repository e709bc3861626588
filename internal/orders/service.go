package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/internal/cart"
	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/internal/locks"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
	"github.com/angelmondragon/pieshop-backend/pkg/pagination"
)

const defaultDeliveryDelay = 5 * time.Second

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts pending carts into orders and lists completed ones.
type Service interface {
	Checkout(ctx context.Context, userID int64) (*OrderConfirmation, error)
	ListCompleted(ctx context.Context, params pagination.Params) (*OrderList, error)
}

// ServiceParams wires the order processor.
type ServiceParams struct {
	Tx            txRunner
	Repo          *Repository
	Cart          *cart.Repository
	Locker        locks.Locker
	Logger        *logger.Logger
	Metrics       *metrics.OrderMetrics
	DeliveryDelay time.Duration
	Now           func() time.Time
}

type service struct {
	tx       txRunner
	repo     *Repository
	cartRepo *cart.Repository
	locker   locks.Locker
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	delay    time.Duration
	now      func() time.Time
}

// NewService builds the order processor.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	delay := params.DeliveryDelay
	if delay <= 0 {
		delay = defaultDeliveryDelay
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		cartRepo: params.Cart,
		locker:   params.Locker,
		logg:     params.Logger,
		metrics:  params.Metrics,
		delay:    delay,
		now:      now,
	}, nil
}

// Checkout completes every pending row of the user in one transaction.
// Prices are frozen at the effective price read inside the transaction.
// An empty cart fails with EMPTY_CART and writes nothing.
func (s *service) Checkout(ctx context.Context, userID int64) (*OrderConfirmation, error) {
	ctx = s.logg.WithUserID(ctx, userID)

	unlock, err := s.locker.Lock(ctx, locks.UserKey(userID))
	if err != nil {
		s.metrics.ObserveCheckout(metrics.CheckoutResultFailed, decimal.Zero)
		return nil, err
	}
	defer unlock()

	var confirmation *OrderConfirmation
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.cartRepo.WithTx(tx).FindPending(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending lines")
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		now := s.now().UTC()
		order := &models.Order{
			UserID:      userID,
			DeliveryETA: now.Add(s.delay),
			CreatedAt:   now,
		}

		sum := decimal.Zero
		frozen := make([]CompleteLine, 0, len(rows))
		for _, row := range rows {
			if row.Item == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "line item references a missing item").
					WithDetails(map[string]any{"line_item_id": row.ID.String()})
			}
			unit := catalog.EffectivePrice(*row.Item)
			lineTotal := catalog.LineAmount(*row.Item, row.Quantity)
			sum = sum.Add(lineTotal)
			frozen = append(frozen, CompleteLine{
				LineItemID:  row.ID,
				UnitPrice:   unit,
				LineTotal:   lineTotal,
				CompletedAt: now,
			})
		}
		order.Total = catalog.RoundMoney(sum)

		ordersRepo := s.repo.WithTx(tx)
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range frozen {
			frozen[i].OrderID = order.ID
			changed, err := ordersRepo.CompletePending(ctx, frozen[i])
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete line item")
			}
			if changed != 1 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "line item is no longer pending").
					WithDetails(map[string]any{"line_item_id": frozen[i].LineItemID.String()})
			}
			unitPrice, lineTotal := frozen[i].UnitPrice, frozen[i].LineTotal
			rows[i].UnitPrice = &unitPrice
			rows[i].LineTotal = &lineTotal
		}
		order.Lines = rows

		result := confirmationFromModel(*order)
		confirmation = &result
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
			s.metrics.ObserveCheckout(metrics.CheckoutResultEmpty, decimal.Zero)
			return nil, err
		}
		s.metrics.ObserveCheckout(metrics.CheckoutResultFailed, decimal.Zero)
		s.logg.Error(ctx, "checkout failed", err)
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
		}
		return nil, err
	}

	s.metrics.ObserveCheckout(metrics.CheckoutResultCompleted, confirmation.Total)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": confirmation.OrderID.String(),
		"total":    confirmation.Total.StringFixed(2),
		"lines":    len(confirmation.Lines),
	})
	s.logg.Info(logCtx, "checkout completed")
	return confirmation, nil
}

func (s *service) ListCompleted(ctx context.Context, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListCompleted(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{
		Orders:     make([]OrderConfirmation, 0, len(page)),
		NextCursor: next,
	}
	for _, order := range page {
		list.Orders = append(list.Orders, confirmationFromModel(order))
	}
	return list, nil
}
