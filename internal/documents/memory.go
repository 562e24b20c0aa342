package documents

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
	docs map[string]*Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = ids.New()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	clone := cloneDocument(d)
	s.docs[d.ID] = clone
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return cloneDocument(d), nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, d := range s.docs {
		if d.OwnerID == ownerID {
			out = append(out, cloneDocument(d))
		}
	}
	sortDocuments(out)
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, cloneDocument(d))
	}
	sortDocuments(out)
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, upd Update) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Link != nil {
		d.Link = *upd.Link
	}
	if upd.Number != nil {
		d.Number = *upd.Number
	}
	if upd.Metadata != nil {
		d.Metadata = upd.Metadata
	}
	d.UpdatedAt = time.Now().UTC()
	return cloneDocument(d), nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, from, to Status, note string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if d.Status != from {
		return nil, identity.ErrInvalidStatus
	}
	d.Status = to
	if note != "" {
		d.ReviewNote = note
	}
	d.UpdatedAt = time.Now().UTC()
	return cloneDocument(d), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return identity.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func sortDocuments(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
}

func cloneDocument(d *Document) *Document {
	clone := *d
	if d.Metadata != nil {
		clone.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
