package domain

import (
	"context"
	"time"
)

// ChatRepository 定义数据访问接口.
// Every method is scoped by user ID; a session belonging to another user
// behaves exactly like a missing one. Timestamps and message IDs are
// assigned by the implementation, never by callers.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	ListSessions(ctx context.Context, userID string, limit int) ([]*Session, error)
	// RenameSession returns ErrSessionNotFound when nothing matched.
	RenameSession(ctx context.Context, userID, sessionID, title string) error
	// DeleteSession removes the session and its messages together. Missing
	// sessions are not an error.
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// AppendMessage stores msg, filling ID, CreatedAt and Seq, and moves the
	// parent session's UpdatedAt forward. ErrSessionNotFound when the parent
	// does not exist.
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, userID, sessionID string) ([]*Message, error)
	ListRecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*Message, error)
}

type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventSessionRenamed  EventType = "session.renamed"
	EventSessionDeleted  EventType = "session.deleted"
	EventMessageAppended EventType = "message.appended"
)

// ChatEvent is published after a write has been durably accepted.
type ChatEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id,omitempty"`
	Role      Role      `json:"role,omitempty"`
	At        time.Time `json:"at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event ChatEvent) error
}
