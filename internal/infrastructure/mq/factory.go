package mq

import (
	"fmt"
	"net"

	"chat-backend/config"

	rocketmq "github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"go.uber.org/zap"
)

// InitProducer starts a RocketMQ producer. It returns nil, nil when no name
// servers are configured.
func InitProducer(cfg config.RocketMQConfig, log *zap.Logger) (*Producer, func() error, error) {
	nameServers := resolveNameServers(cfg.NameServers, log)
	if len(nameServers) == 0 {
		log.Info("rocketmq name servers not configured, chat events disabled")
		return nil, nil, nil
	}

	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(nameServers)),
		producer.WithGroupName(cfg.GroupName),
		producer.WithRetry(cfg.MaxRetries),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create rocketmq producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, nil, fmt.Errorf("start rocketmq producer: %w", err)
	}
	return NewProducer(p, cfg.Topic), p.Shutdown, nil
}

// InitConsumer starts the cache-invalidation consumer, or returns nil, nil
// when no name servers are configured.
func InitConsumer(cfg config.RocketMQConfig, cache CacheInvalidator, log *zap.Logger) (*Consumer, error) {
	nameServers := resolveNameServers(cfg.NameServers, log)
	if len(nameServers) == 0 {
		return nil, nil
	}

	c, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(nameServers)),
		consumer.WithGroupName(cfg.ConsumerGroup),
		consumer.WithRetry(cfg.MaxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("create rocketmq consumer: %w", err)
	}

	mqConsumer := NewConsumer(c, cfg.Topic, cache, log)
	if err := mqConsumer.Subscribe(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Topic, err)
	}
	if err := mqConsumer.Start(); err != nil {
		return nil, fmt.Errorf("start rocketmq consumer: %w", err)
	}
	log.Info("rocketmq consumer started", zap.String("topic", cfg.Topic))
	return mqConsumer, nil
}

// resolveNameServers turns host:port entries into ip:port, which the
// passthrough resolver requires. Unresolvable entries are kept as given.
func resolveNameServers(servers []string, log *zap.Logger) []string {
	var resolved []string
	for _, addr := range servers {
		if addr == "" {
			continue
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			log.Warn("split name server address", zap.String("addr", addr), zap.Error(err))
			resolved = append(resolved, addr)
			continue
		}
		ips, err := net.LookupHost(host)
		if err != nil || len(ips) == 0 {
			log.Warn("lookup name server host", zap.String("host", host), zap.Error(err))
			resolved = append(resolved, addr)
			continue
		}
		resolved = append(resolved, net.JoinHostPort(ips[0], port))
	}
	return resolved
}
