package mq

import (
	"context"
	"encoding/json"

	"chat-backend/internal/domain"

	rocketmq "github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"go.uber.org/zap"
)

type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID, sessionID string) error
}

// Consumer drops cached windows of deleted sessions. The synchronous
// invalidation on delete can fail; this is the second chance.
type Consumer struct {
	client rocketmq.PushConsumer
	topic  string
	cache  CacheInvalidator
	log    *zap.Logger
}

func NewConsumer(client rocketmq.PushConsumer, topic string, cache CacheInvalidator, log *zap.Logger) *Consumer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Consumer{
		client: client,
		topic:  topic,
		cache:  cache,
		log:    log,
	}
}

func (c *Consumer) Subscribe() error {
	return c.client.Subscribe(
		c.topic,
		consumer.MessageSelector{Type: consumer.TAG, Expression: string(domain.EventSessionDeleted)},
		c.handleEvents,
	)
}

func (c *Consumer) handleEvents(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, msg := range msgs {
		var event domain.ChatEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			c.log.Warn("drop malformed chat event", zap.String("msg_id", msg.MsgId), zap.Error(err))
			continue
		}
		if event.Type != domain.EventSessionDeleted {
			continue
		}
		if err := c.cache.Invalidate(ctx, event.UserID, event.SessionID); err != nil {
			c.log.Error("invalidate deleted session window, will retry",
				zap.String("session_id", event.SessionID), zap.Error(err))
			return consumer.ConsumeRetryLater, nil
		}
	}
	return consumer.ConsumeSuccess, nil
}

func (c *Consumer) Start() error {
	return c.client.Start()
}

func (c *Consumer) Shutdown() error {
	return c.client.Shutdown()
}
