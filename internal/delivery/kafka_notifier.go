package delivery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier produces notices keyed by user id, so one user's notices
// land on one partition in order.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier builds a synchronous writer for the configured topic.
func NewKafkaNotifier(cfg config.KafkaConfig, logg *logger.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka notifier requires a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		RequiredAcks: kafka.RequireOne,
	}
	if logg != nil {
		writer.ErrorLogger = kafka.LoggerFunc(func(msg string, args ...any) {
			logg.Warn(logg.WithField(context.Background(), "topic", cfg.Topic), fmt.Sprintf("kafka writer: "+msg, args...))
		})
	}
	return newKafkaNotifier(writer, cfg.Topic), nil
}

func newKafkaNotifier(writer messageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic}
}

func (n *KafkaNotifier) Name() string { return string(enums.NotifierKindKafka) }

func (n *KafkaNotifier) NotifyDelivered(ctx context.Context, notice Notice) error {
	payload, err := notice.encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(notice.UserID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("order.delivered")},
			{Key: "order_id", Value: []byte(notice.OrderID.String())},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write delivery notice to %s: %w", n.topic, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
