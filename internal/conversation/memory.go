package conversation

import (
	"context"
	"sync"

	"finassist/internal/types"
)

// MemoryStore keeps turns in process memory. Used in tests and one-shot CLI
// runs.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]types.ConversationTurn
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]types.ConversationTurn)}
}

func (s *MemoryStore) AppendTurns(ctx context.Context, userID string, turns []types.ConversationTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[userID] = append(s.turns[userID], turns...)
	return nil
}

func (s *MemoryStore) ReadLatest(ctx context.Context, userID string, limit int) ([]types.ConversationTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.turns[userID], limit), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
