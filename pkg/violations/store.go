package violations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// SessionRecord is a persistable snapshot of one worker's tracker.
type SessionRecord struct {
	Summary Summary                                  `json:"summary"`
	ByTest  map[domain.TestID][]domain.ViolationType `json:"by_test"`
}

// ErrSessionNotFound is returned when a session record does not exist.
var ErrSessionNotFound = errors.New("violations: session not found")

// Store persists per-session violation records so that a multi-process
// host runner can collect worker results after the fact.
type Store interface {
	Save(ctx context.Context, sessionID string, rec SessionRecord) error
	Load(ctx context.Context, sessionID string) (SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]SessionRecord
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]SessionRecord)}
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[sessionID] = rec
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[sessionID]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, sessionID)
	return nil
}

// RedisStore is a Redis-backed implementation of the Store interface.
// Records expire after TTL so abandoned worker sessions do not pile up.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(addr string, db int, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: 24 * time.Hour}, nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("hermetic:session:%s", sessionID)
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, rec SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (SessionRecord, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionRecord{}, ErrSessionNotFound
		}
		return SessionRecord{}, fmt.Errorf("failed to load session record: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return SessionRecord{}, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}
