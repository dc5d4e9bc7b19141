package adapter

import (
	"context"
	"errors"

	"chat-backend/internal/domain"
	"chat-backend/internal/infrastructure/persistence/cache"
	"chat-backend/internal/infrastructure/persistence/repository"

	"go.uber.org/zap"
)

// ChatRepositoryAdapter is the domain.ChatRepository used by the service:
// the database is the source of truth, Redis serves recent windows, and
// lifecycle events go out after each durable write. Cache and event
// failures are logged, never returned.
type ChatRepositoryAdapter struct {
	sessions *repository.SessionRepository
	messages *repository.MessageRepository
	cache    *cache.RecentCache
	events   domain.EventPublisher
	log      *zap.Logger
}

var _ domain.ChatRepository = (*ChatRepositoryAdapter)(nil)

// NewChatRepositoryAdapter wires the adapter. recent and events may be nil.
func NewChatRepositoryAdapter(
	sessions *repository.SessionRepository,
	messages *repository.MessageRepository,
	recent *cache.RecentCache,
	events domain.EventPublisher,
	log *zap.Logger,
) *ChatRepositoryAdapter {
	return &ChatRepositoryAdapter{
		sessions: sessions,
		messages: messages,
		cache:    recent,
		events:   events,
		log:      log,
	}
}

func (adp *ChatRepositoryAdapter) CreateSession(ctx context.Context, session *domain.Session) error {
	if err := adp.sessions.Create(ctx, session); err != nil {
		return err
	}
	adp.publish(ctx, domain.ChatEvent{
		Type:      domain.EventSessionCreated,
		UserID:    session.UserID,
		SessionID: session.ID,
		At:        session.CreatedAt,
	})
	return nil
}

func (adp *ChatRepositoryAdapter) ListSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error) {
	return adp.sessions.FindByUserID(ctx, userID, limit)
}

func (adp *ChatRepositoryAdapter) RenameSession(ctx context.Context, userID, sessionID, title string) error {
	if err := adp.sessions.UpdateTitle(ctx, userID, sessionID, title); err != nil {
		return err
	}
	adp.publish(ctx, domain.ChatEvent{
		Type:      domain.EventSessionRenamed,
		UserID:    userID,
		SessionID: sessionID,
	})
	return nil
}

func (adp *ChatRepositoryAdapter) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := adp.sessions.Delete(ctx, userID, sessionID); err != nil {
		return err
	}
	if adp.cache != nil {
		if err := adp.cache.Invalidate(ctx, userID, sessionID); err != nil {
			adp.log.Warn("cache invalidate session failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	adp.publish(ctx, domain.ChatEvent{
		Type:      domain.EventSessionDeleted,
		UserID:    userID,
		SessionID: sessionID,
	})
	return nil
}

func (adp *ChatRepositoryAdapter) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if err := adp.messages.Append(ctx, msg); err != nil {
		return err
	}
	if adp.cache != nil {
		if err := adp.cache.Append(ctx, msg); err != nil {
			adp.log.Warn("cache append message failed, dropping window",
				zap.String("session_id", msg.SessionID), zap.Error(err))
			if err := adp.cache.Invalidate(ctx, msg.UserID, msg.SessionID); err != nil {
				adp.log.Warn("cache invalidate session failed",
					zap.String("session_id", msg.SessionID), zap.Error(err))
			}
		}
	}
	adp.publish(ctx, domain.ChatEvent{
		Type:      domain.EventMessageAppended,
		UserID:    msg.UserID,
		SessionID: msg.SessionID,
		MessageID: msg.ID,
		Role:      msg.Role,
		At:        msg.CreatedAt,
	})
	return nil
}

func (adp *ChatRepositoryAdapter) ListMessages(ctx context.Context, userID, sessionID string) ([]*domain.Message, error) {
	return adp.messages.FindBySessionID(ctx, userID, sessionID)
}

func (adp *ChatRepositoryAdapter) ListRecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Message, error) {
	if adp.cache == nil || limit > adp.cache.Capacity() {
		return adp.messages.FindRecentBySessionID(ctx, userID, sessionID, limit)
	}

	// 读缓存
	messages, err := adp.cache.Recent(ctx, userID, sessionID, limit)
	if err == nil {
		return messages, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		adp.log.Warn("cache read recent messages failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	// Miss: load the full window so later reads of any size up to capacity hit.
	window, err := adp.messages.FindRecentBySessionID(ctx, userID, sessionID, adp.cache.Capacity())
	if err != nil {
		return nil, err
	}
	if len(window) > 0 {
		if err := adp.cache.Fill(ctx, userID, sessionID, window); err != nil {
			adp.log.Warn("cache fill recent messages failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window, nil
}

func (adp *ChatRepositoryAdapter) publish(ctx context.Context, event domain.ChatEvent) {
	if adp.events == nil {
		return
	}
	if err := adp.events.Publish(ctx, event); err != nil {
		adp.log.Warn("publish chat event failed",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID),
			zap.Error(err))
	}
}
