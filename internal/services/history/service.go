// Package history maps opaque response identifiers to the conversation
// context behind them, so a follow-up request can carry just
// previous_response_id instead of its full history.
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/draftwise/draftwise/internal/conversation"
	"github.com/draftwise/draftwise/internal/infrastructure/redis"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "history:"
	entryTTL  = 24 * time.Hour
)

// Store persists the turns recorded under a response identifier.
type Store interface {
	Set(ctx context.Context, responseID string, turns []conversation.Turn) error
	Get(ctx context.Context, responseID string) ([]conversation.Turn, error)
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]conversation.Turn
}

type Service struct {
	store Store
}

// NewService picks Redis when it is reachable and falls back to process
// memory otherwise. Both stores hold the same shape; the fallback just loses
// continuity on restart.
func NewService(redisService *redis.Service) *Service {
	var store Store
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable - history falling back to memory store")
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService}
		}
	} else {
		store = newMemoryStore()
	}

	return &Service{store: store}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]conversation.Turn)}
}

// Record stores the turns behind a freshly issued response identifier,
// overwriting any previous entry for that id.
func (s *Service) Record(ctx context.Context, responseID string, turns []conversation.Turn) error {
	if responseID == "" {
		return nil
	}
	return s.store.Set(ctx, responseID, turns)
}

// Resolve returns the turns recorded under a response identifier. An unknown
// id resolves to nil rather than an error: the caller degrades to treating
// the request as a fresh conversation.
func (s *Service) Resolve(ctx context.Context, responseID string) []conversation.Turn {
	if responseID == "" {
		return nil
	}
	turns, err := s.store.Get(ctx, responseID)
	if err != nil {
		log.Warn().Err(err).Str("response_id", responseID).Msg("Failed to resolve conversation history")
		return nil
	}
	return turns
}

// Redis store implementation

func (rs *RedisStore) Set(ctx context.Context, responseID string, turns []conversation.Turn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return rs.redisService.Set(ctx, keyPrefix+responseID, string(data), entryTTL)
}

func (rs *RedisStore) Get(ctx context.Context, responseID string) ([]conversation.Turn, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+responseID)
	if err != nil {
		if redis.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var turns []conversation.Turn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// Memory store implementation

func (ms *MemoryStore) Set(_ context.Context, responseID string, turns []conversation.Turn) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.entries[responseID] = turns
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, responseID string) ([]conversation.Turn, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.entries[responseID], nil
}
