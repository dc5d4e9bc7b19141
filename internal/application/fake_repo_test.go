package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-backend/internal/domain"
)

// memoryRepo is an in-memory domain.ChatRepository with a stepping clock.
type memoryRepo struct {
	mu       sync.Mutex
	clock    time.Time
	seq      uint64
	sessions map[string]*domain.Session
	messages map[string][]*domain.Message

	appendErr error
	recentErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		sessions: make(map[string]*domain.Session),
		messages: make(map[string][]*domain.Message),
	}
}

func (r *memoryRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *memoryRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%04d", prefix, r.seq)
}

func (r *memoryRepo) owned(userID, sessionID string) (*domain.Session, bool) {
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

func (r *memoryRepo) CreateSession(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	session.ID = r.nextID("s")
	session.CreatedAt = now
	session.UpdatedAt = now
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

// stored returns a copy of the session as the fake holds it.
func (r *memoryRepo) stored(userID, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.owned(userID, sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) ListSessions(_ context.Context, userID string, limit int) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	domain.SortSessionsByActivity(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) RenameSession(_ context.Context, userID, sessionID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.owned(userID, sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Title = title
	s.UpdatedAt = r.tick()
	return nil
}

func (r *memoryRepo) DeleteSession(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owned(userID, sessionID); ok {
		delete(r.sessions, sessionID)
		delete(r.messages, sessionID)
	}
	return nil
}

func (r *memoryRepo) AppendMessage(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	s, ok := r.owned(msg.UserID, msg.SessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	msg.ID = r.nextID("m")
	msg.CreatedAt = r.tick()
	msg.Seq = r.seq
	s.UpdatedAt = msg.CreatedAt
	cp := *msg
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], &cp)
	return nil
}

func (r *memoryRepo) ListMessages(_ context.Context, userID, sessionID string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owned(userID, sessionID); !ok {
		return nil, nil
	}
	out := make([]*domain.Message, 0, len(r.messages[sessionID]))
	for _, m := range r.messages[sessionID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryRepo) ListRecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	err := r.recentErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	all, _ := r.ListMessages(ctx, userID, sessionID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// seed appends messages directly, bypassing validation.
func (r *memoryRepo) seed(userID, sessionID string, role domain.Role, text string) *domain.Message {
	m := &domain.Message{UserID: userID, SessionID: sessionID, Role: role, Content: text}
	if err := r.AppendMessage(context.Background(), m); err != nil {
		panic(err)
	}
	return m
}
