package model

import (
	"time"

	"chat-backend/internal/domain"
)

// MessageModel rows are only ever inserted or removed together with their
// session. The auto-increment ID doubles as the insertion sequence.
type MessageModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id"`
	MessageID string    `gorm:"uniqueIndex:idx_messages_message_id;size:36;not null;column:message_id"`
	UserID    string    `gorm:"index:idx_messages_owner,priority:1;size:128;not null;column:user_id"`
	SessionID string    `gorm:"index:idx_messages_owner,priority:2;size:36;not null;column:session_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	Role      string    `gorm:"size:20;not null;column:role"`
	CreatedAt time.Time `gorm:"index:idx_messages_owner,priority:3;not null;column:created_at"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) ToDomain() *domain.Message {
	return &domain.Message{
		ID:        m.MessageID,
		SessionID: m.SessionID,
		UserID:    m.UserID,
		Role:      domain.Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
		Seq:       uint64(m.ID),
	}
}

func ToMessageModel(d *domain.Message) *MessageModel {
	return &MessageModel{
		ID:        uint(d.Seq),
		MessageID: d.ID,
		UserID:    d.UserID,
		SessionID: d.SessionID,
		Content:   d.Content,
		Role:      d.Role.String(),
		CreatedAt: d.CreatedAt,
	}
}
