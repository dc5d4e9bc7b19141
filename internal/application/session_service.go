package application

import (
	"context"
	"strings"

	"chat-backend/internal/domain"
)

const DefaultMaxSessions = 200

// SessionService 会话管理.
type SessionService struct {
	chatRepo    domain.ChatRepository
	maxSessions int
}

func NewSessionService(chatRepo domain.ChatRepository, maxSessions int) *SessionService {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &SessionService{
		chatRepo:    chatRepo,
		maxSessions: maxSessions,
	}
}

// List 获取用户会话列表, most recently active first.
func (s *SessionService) List(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := s.chatRepo.ListSessions(ctx, userID, s.maxSessions)
	if err != nil {
		return nil, err
	}
	domain.SortSessionsByActivity(sessions)
	if len(sessions) > s.maxSessions {
		sessions = sessions[:s.maxSessions]
	}
	return sessions, nil
}

// Create 创建会话. A blank title becomes domain.DefaultSessionTitle.
func (s *SessionService) Create(ctx context.Context, userID, title string) (*domain.Session, error) {
	session := &domain.Session{UserID: userID}
	session.SetTitle(title)
	if err := s.chatRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Rename sets a new title. Blank titles are rejected before storage is
// touched; unknown sessions yield domain.ErrSessionNotFound.
func (s *SessionService) Rename(ctx context.Context, userID, sessionID, title string) error {
	if strings.TrimSpace(title) == "" {
		return domain.NewValidationError("title", "must not be empty")
	}
	return s.chatRepo.RenameSession(ctx, userID, sessionID, domain.NormalizeTitle(title))
}

// Delete 删除会话及其消息. Deleting a missing session succeeds.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	return s.chatRepo.DeleteSession(ctx, userID, sessionID)
}
