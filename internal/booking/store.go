package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrWizardNotFound is returned for unknown, expired or foreign wizards.
var ErrWizardNotFound = errors.New("booking: wizard not found")

// WizardStore persists wizards between requests.
type WizardStore interface {
	Load(ctx context.Context, id string) (*Wizard, error)
	Save(ctx context.Context, w *Wizard) error
	Delete(ctx context.Context, id string) error
}

// RedisWizardStore keeps wizards as JSON values that expire after ttl of inactivity.
type RedisWizardStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisWizardStore(client *redis.Client, ttl time.Duration) *RedisWizardStore {
	if client == nil {
		panic("booking: redis client required")
	}
	return &RedisWizardStore{client: client, ttl: ttl}
}

func wizardKey(id string) string { return "booking:wizard:" + id }

func (s *RedisWizardStore) Load(ctx context.Context, id string) (*Wizard, error) {
	raw, err := s.client.Get(ctx, wizardKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrWizardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load wizard: %w", err)
	}
	var w Wizard
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("booking: decode wizard: %w", err)
	}
	return &w, nil
}

func (s *RedisWizardStore) Save(ctx context.Context, w *Wizard) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("booking: encode wizard: %w", err)
	}
	if err := s.client.Set(ctx, wizardKey(w.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: save wizard: %w", err)
	}
	return nil
}

func (s *RedisWizardStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, wizardKey(id)).Err(); err != nil {
		return fmt.Errorf("booking: delete wizard: %w", err)
	}
	return nil
}

type storedWizard struct {
	raw     []byte
	expires time.Time
}

// MemoryWizardStore is an in-process WizardStore for development and tests.
type MemoryWizardStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]storedWizard
	now     func() time.Time
}

func NewMemoryWizardStore(ttl time.Duration) *MemoryWizardStore {
	return &MemoryWizardStore{ttl: ttl, entries: make(map[string]storedWizard), now: time.Now}
}

func (s *MemoryWizardStore) Load(_ context.Context, id string) (*Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !s.now().Before(e.expires) {
		delete(s.entries, id)
		return nil, ErrWizardNotFound
	}
	var w Wizard
	if err := json.Unmarshal(e.raw, &w); err != nil {
		return nil, fmt.Errorf("booking: decode wizard: %w", err)
	}
	return &w, nil
}

func (s *MemoryWizardStore) Save(_ context.Context, w *Wizard) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("booking: encode wizard: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[w.ID] = storedWizard{raw: raw, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryWizardStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
