package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-backend/internal/domain"
	"chat-backend/internal/infrastructure/persistence/db"
	"chat-backend/internal/infrastructure/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionRepository(gdb *gorm.DB) *SessionRepository {
	return &SessionRepository{db: gdb, now: db.Now}
}

// Create assigns the session ID and both timestamps from one clock read.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate session id: %w", err)
		}
		s.ID = id.String()
	}
	now := r.now()
	s.CreatedAt = now
	s.UpdatedAt = now

	row := model.ToSessionModel(s)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	var row model.SessionModel
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return row.ToDomain(), nil
}

func (r *SessionRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]*domain.Session, error) {
	var rows []*model.SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, created_at DESC, session_id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	sessions := make([]*domain.Session, len(rows))
	for i, m := range rows {
		sessions[i] = m.ToDomain()
	}
	return sessions, nil
}

// UpdateTitle sets the title and moves updated_at to the storage clock,
// never backwards.
func (r *SessionRepository) UpdateTitle(ctx context.Context, userID, sessionID, title string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockSession(tx, userID, sessionID)
		if err != nil {
			return err
		}
		updatedAt := row.UpdatedAt
		if now := r.now(); now.After(updatedAt) {
			updatedAt = now
		}
		if err := tx.Model(&model.SessionModel{}).
			Where("id = ?", row.ID).
			UpdateColumns(map[string]any{"title": title, "updated_at": updatedAt}).Error; err != nil {
			return fmt.Errorf("update session title: %w", err)
		}
		return nil
	})
}

// Delete removes the session and all of its messages in one transaction.
// The session row is locked first so a concurrent Append either commits
// before the messages are deleted or sees ErrSessionNotFound.
func (r *SessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockSession(tx, userID, sessionID); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).
			Delete(&model.MessageModel{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).
			Delete(&model.SessionModel{}).Error; err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// lockSession loads the session row FOR UPDATE where the dialect supports it.
func lockSession(tx *gorm.DB, userID, sessionID string) (*model.SessionModel, error) {
	var row model.SessionModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &row, nil
}
