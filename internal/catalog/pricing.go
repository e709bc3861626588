package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

var one = decimal.NewFromInt(1)

// EffectivePrice is the full-precision price after discount. Totals are
// summed from these values and rounded once at the end.
func EffectivePrice(item models.Item) decimal.Decimal {
	if !item.Discount.IsPositive() {
		return item.Price
	}
	return item.Price.Mul(one.Sub(item.Discount))
}

// DisplayPrice is EffectivePrice rounded half-up to cents.
func DisplayPrice(item models.Item) decimal.Decimal {
	return RoundMoney(EffectivePrice(item))
}

// LineAmount is EffectivePrice times quantity, unrounded.
func LineAmount(item models.Item, quantity int) decimal.Decimal {
	return EffectivePrice(item).Mul(decimal.NewFromInt(int64(quantity)))
}

// RoundMoney rounds half away from zero to two places.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// ValidDiscount reports whether d lies in [0, 1).
func ValidDiscount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(one)
}
