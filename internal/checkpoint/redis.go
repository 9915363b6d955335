package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

// RedisStore persists conversation state as one JSON snapshot per thread
// key. Snapshots are written whole, so a committed checkpoint is always
// self-consistent.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed checkpoint store. A zero TTL keeps
// checkpoints indefinitely.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func checkpointKey(key ThreadKey) string {
	return "checkpoint:" + key.String()
}

// Save writes a snapshot, replacing any prior checkpoint for the thread.
func (s *RedisStore) Save(ctx context.Context, key ThreadKey, state *model.ConversationState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return &IOError{Op: "save", Key: key, Err: err}
	}
	if err := s.rdb.Set(ctx, checkpointKey(key), b, s.ttl).Err(); err != nil {
		return &IOError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// Load reads the snapshot for a thread, or (nil, nil) when none exists.
func (s *RedisStore) Load(ctx context.Context, key ThreadKey) (*model.ConversationState, error) {
	b, err := s.rdb.Get(ctx, checkpointKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, &IOError{Op: "load", Key: key, Err: err}
	}
	var state model.ConversationState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, &IOError{Op: "load", Key: key, Err: err}
	}
	return &state, nil
}

var _ Store = (*RedisStore)(nil)
