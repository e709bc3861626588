package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const EnvPrefix = "PIESHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "PIESHOP_APP_ENV"
	EnvPort      = "PIESHOP_APP_PORT"
	EnvDBDSN     = "PIESHOP_DB_DSN"
	EnvDBHost    = "PIESHOP_DB_HOST"
	EnvDBUser    = "PIESHOP_DB_USER"
	EnvDBName    = "PIESHOP_DB_NAME"
	EnvUseSQLite = "PIESHOP_USE_SQLITE"

	EnvRedisURL = "PIESHOP_REDIS_URL"

	EnvPromotionInterval     = "PIESHOP_PROMOTION_INTERVAL"
	EnvPromotionRetryBackoff = "PIESHOP_PROMOTION_RETRY_BACKOFF"
	EnvPromotionDiscount     = "PIESHOP_PROMOTION_DISCOUNT"

	EnvDeliveryDelay    = "PIESHOP_DELIVERY_DELAY"
	EnvDeliveryNotifier = "PIESHOP_DELIVERY_NOTIFIER"
	EnvKafkaBrokers     = "PIESHOP_KAFKA_BROKERS"
	EnvLocksBackend     = "PIESHOP_LOCKS_BACKEND"
)

const defaultSQLiteDSN = "file:pieshop.db?_busy_timeout=5000"

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// ParseDiscount parses a discount fraction and enforces the [0,1) range.
func ParseDiscount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid discount %q: %w", value, err)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("discount %s must be in [0,1)", d)
	}
	return d, nil
}
