package requests

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
	mu   sync.RWMutex
	reqs map[string]*ServiceRequest
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reqs: make(map[string]*ServiceRequest)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, r *ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.reqs[r.ID] = cloneRequest(r)
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return cloneRequest(r), nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]*ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ServiceRequest
	for _, r := range s.reqs {
		if r.OwnerID == ownerID {
			out = append(out, cloneRequest(r))
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ServiceRequest, 0, len(s.reqs))
	for _, r := range s.reqs {
		out = append(out, cloneRequest(r))
	}
	sortRequests(out)
	return out, nil
}

func (s *MemoryStore) ListOpen(ctx context.Context) ([]*ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ServiceRequest
	for _, r := range s.reqs {
		if !r.Status.Terminal() {
			out = append(out, cloneRequest(r))
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, from, to Status, note string) (*ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if r.Status != from {
		return nil, identity.ErrInvalidStatus
	}
	r.Status = to
	if note != "" {
		r.ReviewNote = note
	}
	r.UpdatedAt = time.Now().UTC()
	return cloneRequest(r), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reqs[id]; !ok {
		return identity.ErrNotFound
	}
	delete(s.reqs, id)
	return nil
}

func sortRequests(reqs []*ServiceRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
}

func cloneRequest(r *ServiceRequest) *ServiceRequest {
	clone := *r
	if r.Documents != nil {
		clone.Documents = make([]AttachedDocument, len(r.Documents))
		copy(clone.Documents, r.Documents)
	}
	if r.PreviousID != nil {
		prev := *r.PreviousID
		clone.PreviousID = &prev
	}
	return &clone
}
