package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"chat-backend/internal/domain"

	"github.com/apache/rocketmq-client-go/v2/primitive"
)

// messageSender is the part of rocketmq.Producer the publisher needs.
type messageSender interface {
	SendSync(ctx context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error)
}

// Producer publishes chat events, tagged by event type and keyed by
// user/session so they can be looked up in the broker console.
type Producer struct {
	client messageSender
	topic  string
}

var _ domain.EventPublisher = (*Producer)(nil)

func NewProducer(client messageSender, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{client: client, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, event domain.ChatEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := primitive.NewMessage(p.topic, data)
	msg.WithTag(string(event.Type))
	msg.WithKeys([]string{event.UserID + keySeparator + event.SessionID})

	if _, err := p.client.SendSync(ctx, msg); err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}
	return nil
}
