package checkpoint

import (
	"context"
	"sync"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

// MemoryStore is an in-process checkpoint store used in tests and as a
// development fallback when Redis is not configured. Snapshots are
// deep-copied on both save and load so callers never alias stored state.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[ThreadKey]*model.ConversationState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[ThreadKey]*model.ConversationState),
	}
}

// Save stores a deep copy of the state under the thread key.
func (s *MemoryStore) Save(ctx context.Context, key ThreadKey, state *model.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = state.Clone()
	return nil
}

// Load returns a deep copy of the stored state, or (nil, nil) when absent.
func (s *MemoryStore) Load(ctx context.Context, key ThreadKey) (*model.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

var _ Store = (*MemoryStore)(nil)
