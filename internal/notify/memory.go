package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"kebeleportal.org/internal/identity"
	"kebeleportal.org/internal/ids"
)

// MemoryStore implements Store with in-process concurrency safety.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Notification)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = ids.New()
	}
	n.CreatedAt = time.Now().UTC()
	clone := *n
	s.items[n.ID] = &clone
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Notification
	for _, n := range s.items {
		if n.UserID == userID {
			clone := *n
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	n.Read = true
	clone := *n
	return &clone, nil
}
