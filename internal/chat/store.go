package chat

import (
	"context"
	"sync"
)

// Store persists chat threads. Messages of a user are kept in append order.
type Store interface {
	Append(ctx context.Context, msg *Message) error
	List(ctx context.Context, userID string) ([]*Message, error)
}

// MemoryStore keeps chat threads in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*Message
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]*Message)}
}

func (s *MemoryStore) Append(ctx context.Context, msg *Message) error {
	copied := *msg
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[msg.UserID] = append(s.threads[msg.UserID], &copied)
	return nil
}

// List returns the user's thread oldest first.
func (s *MemoryStore) List(ctx context.Context, userID string) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread := s.threads[userID]
	out := make([]*Message, 0, len(thread))
	for _, msg := range thread {
		copied := *msg
		out = append(out, &copied)
	}
	return out, nil
}
