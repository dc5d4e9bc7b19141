package model

import (
	"time"

	"chat-backend/internal/domain"
)

type SessionModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id"`
	SessionID string    `gorm:"uniqueIndex:idx_sessions_session_id;size:36;not null;column:session_id"`
	UserID    string    `gorm:"index:idx_sessions_user_updated,priority:1;size:128;not null;column:user_id"`
	Title     string    `gorm:"size:255;not null;column:title"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"index:idx_sessions_user_updated,priority:2;not null;column:updated_at"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToDomain() *domain.Session {
	return &domain.Session{
		ID:        m.SessionID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func ToSessionModel(d *domain.Session) *SessionModel {
	return &SessionModel{
		SessionID: d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
