package adapter_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-backend/config"
	"chat-backend/internal/domain"
	"chat-backend/internal/infrastructure/adapter"
	"chat-backend/internal/infrastructure/persistence/cache"
	"chat-backend/internal/infrastructure/persistence/db"
	"chat-backend/internal/infrastructure/persistence/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChatEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.ChatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	repo      *adapter.ChatRepositoryAdapter
	sessions  *repository.SessionRepository
	cache     *cache.RecentCache
	redis     *miniredis.Miniredis
	publisher *recordingPublisher
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, zap.NewNop(), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	f := &fixture{publisher: &recordingPublisher{}}
	if withCache {
		f.redis = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		f.cache = cache.NewRecentCache(client, "test:", 20, time.Minute)
	}
	f.sessions = repository.NewSessionRepository(gdb)
	f.repo = adapter.NewChatRepositoryAdapter(
		f.sessions,
		repository.NewMessageRepository(gdb),
		f.cache,
		f.publisher,
		zap.NewNop(),
	)
	return f
}

func (f *fixture) session(t *testing.T, userID string) *domain.Session {
	t.Helper()
	s := &domain.Session{UserID: userID, Title: domain.DefaultSessionTitle}
	require.NoError(t, f.repo.CreateSession(context.Background(), s))
	return s
}

func (f *fixture) appendN(t *testing.T, s *domain.Session, n int) []*domain.Message {
	t.Helper()
	out := make([]*domain.Message, 0, n)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		m := &domain.Message{
			SessionID: s.ID,
			UserID:    s.UserID,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
		}
		require.NoError(t, f.repo.AppendMessage(context.Background(), m))
		out = append(out, m)
	}
	return out
}

func ids(msgs []*domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestAdapter_RecentMessagesFillsCacheOnMiss(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.session(t, "alice")
	// Invalidate so the first read is a cold miss.
	written := f.appendN(t, s, 25)
	require.NoError(t, f.cache.Invalidate(ctx, "alice", s.ID))

	got, err := f.repo.ListRecentMessages(ctx, "alice", s.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, ids(written[20:]), ids(got))

	cached, err := f.cache.Recent(ctx, "alice", s.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, ids(written[5:]), ids(cached))
}

func TestAdapter_AppendWritesThroughWarmWindow(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.session(t, "alice")
	written := f.appendN(t, s, 3)

	_, err := f.repo.ListRecentMessages(ctx, "alice", s.ID, 20)
	require.NoError(t, err)

	written = append(written, f.appendN(t, s, 1)...)
	cached, err := f.cache.Recent(ctx, "alice", s.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, ids(written), ids(cached))
}

func TestAdapter_RecentMessagesLargerThanCacheReadsDatabase(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.session(t, "alice")
	written := f.appendN(t, s, 30)

	got, err := f.repo.ListRecentMessages(ctx, "alice", s.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, ids(written[5:]), ids(got))
}

func TestAdapter_RedisDownFallsBackToDatabase(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.session(t, "alice")
	written := f.appendN(t, s, 4)

	f.redis.Close()

	got, err := f.repo.ListRecentMessages(ctx, "alice", s.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, ids(written), ids(got))

	m := &domain.Message{SessionID: s.ID, UserID: "alice", Role: domain.RoleUser, Content: "still works"}
	require.NoError(t, f.repo.AppendMessage(ctx, m))
}

func TestAdapter_WithoutCache(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	s := f.session(t, "alice")
	written := f.appendN(t, s, 3)

	got, err := f.repo.ListRecentMessages(ctx, "alice", s.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ids(written[1:]), ids(got))
}

func TestAdapter_DeleteInvalidatesAndPublishes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.session(t, "alice")
	f.appendN(t, s, 2)
	_, err := f.repo.ListRecentMessages(ctx, "alice", s.ID, 20)
	require.NoError(t, err)

	require.NoError(t, f.repo.DeleteSession(ctx, "alice", s.ID))

	_, err = f.cache.Recent(ctx, "alice", s.ID, 20)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	msgs, err := f.repo.ListMessages(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = f.sessions.FindByID(ctx, "alice", s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.Equal(t, []domain.EventType{
		domain.EventSessionCreated,
		domain.EventMessageAppended,
		domain.EventMessageAppended,
		domain.EventSessionDeleted,
	}, f.publisher.types())
}

func TestAdapter_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t, false)
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()

	s := f.session(t, "alice")
	require.NoError(t, f.repo.RenameSession(ctx, "alice", s.ID, "Renamed"))

	got, err := f.sessions.FindByID(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestAdapter_RenameUnknownSession(t *testing.T) {
	f := newFixture(t, false)
	err := f.repo.RenameSession(context.Background(), "alice", "missing", "x")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, f.publisher.types())
}
