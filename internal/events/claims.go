package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimStore makes sure only one process forwards a given change when
// several instances listen to the same notification channel.
type ClaimStore interface {
	// Claim returns true for the first caller with key within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisClaimStore claims keys with SET NX.
type RedisClaimStore struct {
	client *redis.Client
}

func NewRedisClaimStore(client *redis.Client) *RedisClaimStore {
	if client == nil {
		panic("events: redis client required")
	}
	return &RedisClaimStore{client: client}
}

func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "events:claimed:"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: claim %s: %w", key, err)
	}
	return ok, nil
}

// MemoryClaimStore is a single-process ClaimStore.
type MemoryClaimStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{claims: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryClaimStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}
