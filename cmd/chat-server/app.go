package main

import (
	"context"
	"errors"
	"fmt"

	"chat-backend/config"
	"chat-backend/internal/application"
	"chat-backend/internal/domain"
	"chat-backend/internal/infrastructure/adapter"
	"chat-backend/internal/infrastructure/llm"
	"chat-backend/internal/infrastructure/lock"
	"chat-backend/internal/infrastructure/mq"
	"chat-backend/internal/infrastructure/persistence/cache"
	"chat-backend/internal/infrastructure/persistence/db"
	"chat-backend/internal/infrastructure/persistence/repository"
	"chat-backend/internal/infrastructure/security"
	"chat-backend/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// app owns every long-lived resource of the server process.
type app struct {
	router  *gin.Engine
	log     *zap.Logger
	closers []func() error
}

// unavailableGenerator stands in when no LLM API key is configured, so
// every exchange gets the fallback reply.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("llm api key not configured")
}

func newApp(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*app, error) {
	a := &app{log: log}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	resolver, err := security.NewJWTResolver(cfg.Auth.JwtSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.Database, log, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return db.Close(gdb) })
	if err := db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	rdb := openRedis(ctx, cfg.Redis, log)
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
	}

	var recent *cache.RecentCache
	if rdb != nil {
		recent = cache.NewRecentCache(rdb, cfg.Redis.Prefix, cfg.Chat.HistoryWindow, cfg.Redis.CacheTTL)
	}

	var events domain.EventPublisher
	producer, shutdownProducer, err := mq.InitProducer(cfg.RocketMQ, log)
	if err != nil {
		return nil, err
	}
	if producer != nil {
		events = producer
		a.closers = append(a.closers, shutdownProducer)
	}
	if recent != nil {
		consumer, err := mq.InitConsumer(cfg.RocketMQ, recent, log)
		if err != nil {
			return nil, err
		}
		if consumer != nil {
			a.closers = append(a.closers, consumer.Shutdown)
		}
	}

	chatRepo := adapter.NewChatRepositoryAdapter(
		repository.NewSessionRepository(gdb),
		repository.NewMessageRepository(gdb),
		recent,
		events,
		log,
	)

	var generator domain.ReplyGenerator = unavailableGenerator{}
	if cfg.LLM.APIKey != "" {
		gemini, err := llm.NewGenerator(ctx, cfg.LLM)
		if err != nil {
			return nil, err
		}
		generator = gemini
	} else {
		log.Warn("llm.api_key not set, replies will use the fallback text")
	}

	var locker domain.SessionLocker
	if cfg.Chat.SerializeSessions {
		if rdb != nil {
			locker = lock.NewRedisLocker(rdb, cfg.Redis.Prefix, cfg.Redis.LockTTL, cfg.Redis.LockMaxAttempts, cfg.Redis.LockBackoff)
		} else {
			locker = lock.NewLocalLocker()
		}
	}

	sessions := application.NewSessionService(chatRepo, cfg.Chat.MaxSessions)
	messages := application.NewMessageLog(chatRepo, cfg.Chat.MaxMessageRunes)
	assembler := application.NewAssembler(messages, chatRepo, generator, locker, application.AssemblerConfig{
		HistoryWindow:     cfg.Chat.HistoryWindow,
		SystemInstruction: cfg.LLM.SystemInstruction,
		FallbackReply:     cfg.LLM.FallbackReply,
		Timeout:           cfg.LLM.Timeout,
	}, log)

	a.router = handler.NewRouter(handler.RouterDeps{
		ServiceName:  cfg.Server.Name,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Sessions:     sessions,
		Messages:     messages,
		Assembler:    assembler,
		Resolver:     resolver,
		Redis:        rdb,
		RedisPrefix:  cfg.Redis.Prefix,
		RateLimitQPS: cfg.Redis.RateLimitQPS,
		Log:          log,
	})
	ready = true
	return a, nil
}

// openRedis returns nil when Redis is not configured or not reachable; the
// server then runs without cache, distributed lock and rate limiting.
func openRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled() {
		log.Info("redis not configured")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, continuing without it", zap.String("addr", cfg.Addr()), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	log.Info("redis connected", zap.String("addr", cfg.Addr()))
	return rdb
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
