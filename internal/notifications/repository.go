package notifications

import (
	"context"
	"sort"
	"sync"
)

// Repository persists notifications.
type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID string) ([]*Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// InMemoryRepository keeps notifications in process memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*Notification
	byUser map[string][]string
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*Notification),
		byUser: make(map[string][]string),
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, n *Notification) error {
	copied := *n
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[n.ID] = &copied
	r.byUser[n.UserID] = append(r.byUser[n.UserID], n.ID)
	return nil
}

// ListForUser returns the user's notifications newest first.
func (r *InMemoryRepository) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	out := make([]*Notification, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		copied := *r.byID[ids[i]]
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, id := range r.byUser[userID] {
		if !r.byID[id].IsRead {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) MarkRead(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (r *InMemoryRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, id := range r.byUser[userID] {
		if n := r.byID[id]; !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}
