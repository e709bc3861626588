package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pieshop-backend/internal/orders"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/redis"
)

// Notice is the "delivered" message sent once an order reaches its ETA.
type Notice struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      int64           `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	DeliveryETA time.Time       `json:"delivery_eta"`
	DeliveredAt time.Time       `json:"delivered_at"`
}

func noticeFor(confirmation orders.OrderConfirmation, at time.Time) Notice {
	return Notice{
		OrderID:     confirmation.OrderID,
		UserID:      confirmation.UserID,
		Total:       confirmation.Total,
		DeliveryETA: confirmation.DeliveryETA,
		DeliveredAt: at,
	}
}

func (n Notice) encode() ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode delivery notice: %w", err)
	}
	return payload, nil
}

// Notifier hands a delivered notice to the chat transport.
type Notifier interface {
	Name() string
	NotifyDelivered(ctx context.Context, notice Notice) error
	Close() error
}

// NotifierDeps carries the clients a notifier backend may need.
type NotifierDeps struct {
	Logger *logger.Logger
	Redis  *redis.Client
	Kafka  config.KafkaConfig
}

// NewNotifier builds the backend named by kind.
func NewNotifier(kind string, deps NotifierDeps) (Notifier, error) {
	parsed, err := enums.ParseNotifierKind(kind)
	if err != nil {
		return nil, err
	}
	switch parsed {
	case enums.NotifierKindRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis notifier requires a redis client")
		}
		return NewRedisNotifier(deps.Redis), nil
	case enums.NotifierKindKafka:
		return NewKafkaNotifier(deps.Kafka, deps.Logger)
	default:
		if deps.Logger == nil {
			return nil, fmt.Errorf("log notifier requires a logger")
		}
		return NewLogNotifier(deps.Logger), nil
	}
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Name() string { return string(enums.NotifierKindLog) }

func (n *LogNotifier) NotifyDelivered(ctx context.Context, notice Notice) error {
	ctx = n.logg.WithFields(n.logg.WithUserID(ctx, notice.UserID), map[string]any{
		"order_id":     notice.OrderID.String(),
		"total":        notice.Total.StringFixed(2),
		"delivery_eta": notice.DeliveryETA,
	})
	n.logg.Info(ctx, "order delivered")
	return nil
}

func (n *LogNotifier) Close() error { return nil }
