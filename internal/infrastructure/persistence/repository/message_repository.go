package repository

import (
	"context"
	"fmt"
	"time"

	"chat-backend/internal/domain"
	"chat-backend/internal/infrastructure/persistence/db"
	"chat-backend/internal/infrastructure/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageRepository(gdb *gorm.DB) *MessageRepository {
	return &MessageRepository{db: gdb, now: db.Now}
}

// Append inserts m under a lock on its parent session, so inserts into one
// session are serialized and the session's updated_at never trails the
// newest message.
func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, m.UserID, m.SessionID)
		if err != nil {
			return err
		}

		if m.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate message id: %w", err)
			}
			m.ID = id.String()
		}
		m.CreatedAt = r.now()
		if m.CreatedAt.Before(session.UpdatedAt) {
			// keep ts >= every earlier write to this session
			m.CreatedAt = session.UpdatedAt
		}

		row := model.ToMessageModel(m)
		row.ID = 0
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		m.Seq = uint64(row.ID)

		if m.CreatedAt.After(session.UpdatedAt) {
			if err := tx.Model(&model.SessionModel{}).
				Where("id = ?", session.ID).
				UpdateColumn("updated_at", m.CreatedAt).Error; err != nil {
				return fmt.Errorf("touch session: %w", err)
			}
		}
		return nil
	})
}

func (r *MessageRepository) FindBySessionID(ctx context.Context, userID, sessionID string) ([]*domain.Message, error) {
	var rows []*model.MessageModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return toDomainMessages(rows), nil
}

// FindRecentBySessionID returns the newest limit messages, oldest first.
func (r *MessageRepository) FindRecentBySessionID(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Message, error) {
	var rows []*model.MessageModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find recent messages: %w", err)
	}
	messages := toDomainMessages(rows)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func toDomainMessages(rows []*model.MessageModel) []*domain.Message {
	messages := make([]*domain.Message, len(rows))
	for i, row := range rows {
		messages[i] = row.ToDomain()
	}
	return messages
}
