package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps live session ids and password-reset tokens.
type SessionStore interface {
	SaveSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	LookupSession(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

// errNoSession is returned by stores when a key is missing or expired.
var errNoSession = errors.New("gateway: session not found")

// RedisSessionStore persists sessions in Redis with per-key expiry.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	if client == nil {
		panic("gateway: redis client required")
	}
	return &RedisSessionStore{client: client}
}

func sessionKey(id string) string { return "session:" + id }
func resetKey(token string) string { return "reset:" + token }

func (s *RedisSessionStore) SaveSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(sessionID), userID, ttl).Err(); err != nil {
		return fmt.Errorf("gateway: save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) LookupSession(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errNoSession
	}
	if err != nil {
		return "", fmt.Errorf("gateway: lookup session: %w", err)
	}
	return userID, nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("gateway: delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("gateway: save reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken returns the user for token and deletes it in one step.
func (s *RedisSessionStore) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errNoSession
	}
	if err != nil {
		return "", fmt.Errorf("gateway: consume reset token: %w", err)
	}
	return userID, nil
}

type memoryEntry struct {
	userID  string
	expires time.Time
}

// MemorySessionStore is an in-process SessionStore for development and tests.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemorySessionStore) put(key, userID string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{userID: userID, expires: s.now().Add(ttl)}
}

func (s *MemorySessionStore) get(key string, remove bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expires) {
		delete(s.entries, key)
		return "", errNoSession
	}
	if remove {
		delete(s.entries, key)
	}
	return e.userID, nil
}

func (s *MemorySessionStore) SaveSession(_ context.Context, sessionID, userID string, ttl time.Duration) error {
	s.put(sessionKey(sessionID), userID, ttl)
	return nil
}

func (s *MemorySessionStore) LookupSession(_ context.Context, sessionID string) (string, error) {
	return s.get(sessionKey(sessionID), false)
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionKey(sessionID))
	return nil
}

func (s *MemorySessionStore) SaveResetToken(_ context.Context, token, userID string, ttl time.Duration) error {
	s.put(resetKey(token), userID, ttl)
	return nil
}

func (s *MemorySessionStore) ConsumeResetToken(_ context.Context, token string) (string, error) {
	return s.get(resetKey(token), true)
}
