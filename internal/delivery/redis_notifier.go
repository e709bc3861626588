package delivery

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

// DeliveredTopic is the pub/sub topic carrying delivered notices.
const DeliveredTopic = "delivered"

type publisher interface {
	Publish(ctx context.Context, channel string, message any) (int64, error)
	ChannelName(topic string) string
}

// RedisNotifier publishes notices on the delivered channel for the chat
// transport to relay.
type RedisNotifier struct {
	client  publisher
	channel string
}

func NewRedisNotifier(client publisher) *RedisNotifier {
	return &RedisNotifier{client: client, channel: client.ChannelName(DeliveredTopic)}
}

func (n *RedisNotifier) Name() string { return string(enums.NotifierKindRedis) }

func (n *RedisNotifier) NotifyDelivered(ctx context.Context, notice Notice) error {
	payload, err := notice.encode()
	if err != nil {
		return err
	}
	if _, err := n.client.Publish(ctx, n.channel, payload); err != nil {
		return fmt.Errorf("publish delivery notice: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Close() error { return nil }
