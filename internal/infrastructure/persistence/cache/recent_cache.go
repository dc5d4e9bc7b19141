package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat-backend/internal/domain"

	"github.com/go-redis/redis/v8"
)

var ErrCacheMiss = errors.New("cache miss")

// headMarker sits below every real entry when the cached window holds the
// whole session, so a short window can still be served as complete.
const headMarker = "^"

const defaultTTL = 30 * time.Minute

// appendScript adds a message only to windows that are already warm and
// trims them back to capacity.
var appendScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -(tonumber(ARGV[3]) + 1))
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

type cachedMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	TS      int64  `json:"ts"`
	Seq     uint64 `json:"seq"`
}

// RecentCache keeps the newest messages of each session in a sorted set
// scored by insertion sequence.
type RecentCache struct {
	client   *redis.Client
	prefix   string
	capacity int
	ttl      time.Duration
}

func NewRecentCache(client *redis.Client, prefix string, capacity int, ttl time.Duration) *RecentCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RecentCache{
		client:   client,
		prefix:   prefix,
		capacity: capacity,
		ttl:      ttl,
	}
}

func (c *RecentCache) Capacity() int {
	return c.capacity
}

// Recent returns the newest limit messages oldest first, or ErrCacheMiss
// when the cached window cannot answer.
func (c *RecentCache) Recent(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Message, error) {
	if limit > c.capacity {
		return nil, ErrCacheMiss
	}
	members, err := c.client.ZRevRange(ctx, c.windowKey(userID, sessionID), 0, int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent window: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrCacheMiss
	}

	messages := make([]*domain.Message, 0, len(members))
	complete := false
	for _, member := range members {
		if member == headMarker {
			complete = true
			break
		}
		m, err := decodeMessage(member, userID, sessionID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}
	if len(messages) < limit && !complete {
		return nil, ErrCacheMiss
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Fill replaces the cached window with messages, which must be the newest
// capacity messages of the session, oldest first.
func (c *RecentCache) Fill(ctx context.Context, userID, sessionID string, messages []*domain.Message) error {
	if len(messages) > c.capacity {
		messages = messages[len(messages)-c.capacity:]
	}
	entries := make([]*redis.Z, 0, len(messages)+1)
	if len(messages) < c.capacity {
		entries = append(entries, &redis.Z{Score: 0, Member: headMarker})
	}
	for _, m := range messages {
		member, err := encodeMessage(m)
		if err != nil {
			return err
		}
		entries = append(entries, &redis.Z{Score: float64(m.Seq), Member: member})
	}

	key := c.windowKey(userID, sessionID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZAdd(ctx, key, entries...)
		pipe.PExpire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fill recent window: %w", err)
	}
	return nil
}

// Append adds m to a warm window. Cold windows are left cold.
func (c *RecentCache) Append(ctx context.Context, m *domain.Message) error {
	member, err := encodeMessage(m)
	if err != nil {
		return err
	}
	err = appendScript.Run(ctx, c.client,
		[]string{c.windowKey(m.UserID, m.SessionID)},
		m.Seq, member, c.capacity, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("append recent window: %w", err)
	}
	return nil
}

func (c *RecentCache) Invalidate(ctx context.Context, userID, sessionID string) error {
	if err := c.client.Del(ctx, c.windowKey(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("invalidate recent window: %w", err)
	}
	return nil
}

func (c *RecentCache) windowKey(userID, sessionID string) string {
	return fmt.Sprintf("%suser:%s:session:%s:recent", c.prefix, userID, sessionID)
}

func encodeMessage(m *domain.Message) (string, error) {
	data, err := json.Marshal(cachedMessage{
		ID:      m.ID,
		Role:    m.Role.String(),
		Content: m.Content,
		TS:      m.CreatedAt.UnixMicro(),
		Seq:     m.Seq,
	})
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	return string(data), nil
}

func decodeMessage(member, userID, sessionID string) (*domain.Message, error) {
	var cm cachedMessage
	if err := json.Unmarshal([]byte(member), &cm); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &domain.Message{
		ID:        cm.ID,
		SessionID: sessionID,
		UserID:    userID,
		Role:      domain.Role(cm.Role),
		Content:   cm.Content,
		CreatedAt: time.UnixMicro(cm.TS).UTC(),
		Seq:       cm.Seq,
	}, nil
}
