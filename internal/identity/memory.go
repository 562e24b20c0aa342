package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"kebeleportal.org/internal/ids"
)

// MemoryStore implements UserStore with in-process concurrency safety.
// Used by tests and local development; production runs on the Postgres
// store.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string // email -> id
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

var _ UserStore = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := s.byEmail[email]; exists {
		return ErrDuplicateIdentity
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	touch(u, time.Now().UTC())
	clone := cloneUser(u)
	s.byID[u.ID] = clone
	s.byEmail[email] = u.ID
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.FederatedID != nil {
		u.FederatedID = *upd.FederatedID
	}
	touch(u, time.Now().UTC())
	return cloneUser(u), nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, from, to Status, reviewedBy Role, reviewerID, reason string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Optimistic precondition, re-checked under the lock.
	if u.Status != from {
		return nil, ErrInvalidStatus
	}
	u.Status = to
	if reviewerID != "" && to == StatusApproved {
		if u.VerifiedBy == nil {
			u.VerifiedBy = make(map[Role]string)
		}
		u.VerifiedBy[reviewedBy] = reviewerID
	}
	if reason != "" {
		u.ReviewReason = reason
	}
	touch(u, time.Now().UTC())
	return cloneUser(u), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(u.Email))
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func cloneUser(u *User) *User {
	clone := *u
	if u.VerifiedBy != nil {
		clone.VerifiedBy = make(map[Role]string, len(u.VerifiedBy))
		for k, v := range u.VerifiedBy {
			clone.VerifiedBy[k] = v
		}
	}
	return &clone
}
