package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Promotion    PromotionConfig
	Delivery     DeliveryConfig
	Kafka        KafkaConfig
	Locks        LocksConfig
	Sessions     SessionsConfig
	Events       EventsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Promotion.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PIESHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"PIESHOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PIESHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIESHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PIESHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PIESHOP_DB_DSN"`
	Driver string `envconfig:"PIESHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIESHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"PIESHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIESHOP_DB_USER"`
	LegacyPassword string `envconfig:"PIESHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIESHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIESHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIESHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIESHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIESHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIESHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIESHOP_REDIS_URL"`
	Address      string        `envconfig:"PIESHOP_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"PIESHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIESHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIESHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIESHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIESHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIESHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIESHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PIESHOP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PIESHOP_AUTO_MIGRATE" default:"false"`
}

// PromotionConfig drives the rotating "special offer".
type PromotionConfig struct {
	Interval     time.Duration `envconfig:"PIESHOP_PROMOTION_INTERVAL" default:"1h"`
	RetryBackoff time.Duration `envconfig:"PIESHOP_PROMOTION_RETRY_BACKOFF" default:"1m"`
	Discount     string        `envconfig:"PIESHOP_PROMOTION_DISCOUNT" default:"0.20"`
	LockTTL      time.Duration `envconfig:"PIESHOP_PROMOTION_LOCK_TTL" default:"5m"`
}

func (p PromotionConfig) validate() error {
	if _, err := ParseDiscount(p.Discount); err != nil {
		return fmt.Errorf("%s: %w", EnvPromotionDiscount, err)
	}
	return nil
}

type DeliveryConfig struct {
	Delay    time.Duration `envconfig:"PIESHOP_DELIVERY_DELAY" default:"5s"`
	Notifier string        `envconfig:"PIESHOP_DELIVERY_NOTIFIER" default:"log"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"PIESHOP_KAFKA_BROKERS"`
	Topic        string        `envconfig:"PIESHOP_KAFKA_DELIVERY_TOPIC" default:"pieshop.delivery"`
	BatchTimeout time.Duration `envconfig:"PIESHOP_KAFKA_BATCH_TIMEOUT" default:"50ms"`
	MaxAttempts  int           `envconfig:"PIESHOP_KAFKA_MAX_ATTEMPTS" default:"3"`
}

// LocksConfig selects how per-user cart operations are serialized.
type LocksConfig struct {
	Backend string        `envconfig:"PIESHOP_LOCKS_BACKEND" default:"local"`
	TTL     time.Duration `envconfig:"PIESHOP_LOCKS_TTL" default:"10s"`
	Wait    time.Duration `envconfig:"PIESHOP_LOCKS_WAIT" default:"5s"`
}

type SessionsConfig struct {
	TTL time.Duration `envconfig:"PIESHOP_SESSIONS_TTL" default:"24h"`
}

type EventsConfig struct {
	RateLimitPerMinute int           `envconfig:"PIESHOP_EVENTS_RATE_LIMIT_PER_MINUTE" default:"60"`
	IdempotencyTTL     time.Duration `envconfig:"PIESHOP_EVENTS_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
