package application

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"chat-backend/internal/domain"
)

const DefaultRecentLimit = 20

// MessageLog is the append-only message history of a session.
type MessageLog struct {
	chatRepo domain.ChatRepository
	maxRunes int
}

// NewMessageLog returns a log that rejects texts longer than maxRunes; zero
// disables the length check.
func NewMessageLog(chatRepo domain.ChatRepository, maxRunes int) *MessageLog {
	return &MessageLog{
		chatRepo: chatRepo,
		maxRunes: maxRunes,
	}
}

// Append 保存消息. The returned message carries the storage-assigned ID and
// timestamp.
func (l *MessageLog) Append(ctx context.Context, userID, sessionID string, role domain.Role, text string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, domain.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "must not be empty")
	}
	if l.maxRunes > 0 && utf8.RuneCountInString(text) > l.maxRunes {
		return nil, domain.NewValidationError("text", fmt.Sprintf("longer than %d characters", l.maxRunes))
	}

	msg := &domain.Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   text,
	}
	if err := l.chatRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// clip cuts text to the configured maximum so a long generated reply can
// still be stored.
func (l *MessageLog) clip(text string) string {
	if l.maxRunes <= 0 || utf8.RuneCountInString(text) <= l.maxRunes {
		return text
	}
	return string([]rune(text)[:l.maxRunes])
}

// List 获取会话历史 in chronological order. An unknown session has no
// messages.
func (l *MessageLog) List(ctx context.Context, userID, sessionID string) ([]*domain.Message, error) {
	messages, err := l.chatRepo.ListMessages(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	domain.SortMessagesChronologically(messages)
	return messages, nil
}

// ListRecent returns the newest limit messages, oldest first.
func (l *MessageLog) ListRecent(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	messages, err := l.chatRepo.ListRecentMessages(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	domain.SortMessagesChronologically(messages)
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}
