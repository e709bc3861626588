package promotions

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

// Picker chooses an index in [0, n). Tests supply a deterministic one.
type Picker interface {
	IntN(n int) int
}

// NewRandomPicker returns a uniform picker backed by math/rand/v2.
func NewRandomPicker() Picker {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RotatorParams wire the promotion rotation.
type RotatorParams struct {
	Tx       txRunner
	Catalog  *catalog.Repository
	Picker   Picker
	Discount decimal.Decimal
	Logger   *logger.Logger
}

// Rotator moves the single catalog promotion to a freshly picked item.
type Rotator struct {
	tx       txRunner
	catalog  *catalog.Repository
	picker   Picker
	discount decimal.Decimal
	logg     *logger.Logger
}

func NewRotator(params RotatorParams) (*Rotator, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !catalog.ValidDiscount(params.Discount) || params.Discount.IsZero() {
		return nil, fmt.Errorf("discount must be in (0, 1), got %s", params.Discount)
	}
	picker := params.Picker
	if picker == nil {
		picker = NewRandomPicker()
	}
	return &Rotator{
		tx:       params.Tx,
		catalog:  params.Catalog,
		picker:   picker,
		discount: params.Discount,
		logg:     params.Logger,
	}, nil
}

// Rotate clears every promotion and discounts one uniformly picked item in a
// single transaction, so readers see either the old or the new promotion.
// Selection is memoryless: the previous item may be picked again. An empty
// catalog yields a nil item and no error.
func (r *Rotator) Rotate(ctx context.Context) (*models.Item, error) {
	var chosen *models.Item
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.catalog.WithTx(tx)
		cleared, err := repo.ClearAllPromotions(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear promotions")
		}
		items, err := repo.ListAll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog")
		}
		if len(items) == 0 {
			r.logg.Warn(ctx, "catalog is empty; no promotion assigned")
			return nil
		}
		pick := items[r.picker.IntN(len(items))]
		if err := repo.ApplyPromotion(ctx, pick.ID, r.discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply promotion")
		}
		pick.Discount = r.discount
		pick.IsPromoted = true
		chosen = &pick

		logCtx := r.logg.WithFields(ctx, map[string]any{
			"item_id":  pick.ID.String(),
			"item":     pick.Name,
			"discount": r.discount.String(),
			"cleared":  cleared,
		})
		r.logg.Info(logCtx, "promotion rotated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chosen, nil
}
