package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kebeleportal.org/internal/identity"
)

// Service enforces the document approval workflow: residents submit and
// read their own records, admin tiers review, only the top tier deletes.
type Service struct {
	store    Store
	notifier identity.Notifier
	now      func() time.Time
}

// NewService constructs the document service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithNotifier wires decision notifications.
func WithNotifier(n identity.Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// Submit files a new document for the calling resident. The owner id comes
// from the verified token, so a payload cannot name someone else's record.
func (s *Service) Submit(ctx context.Context, caller identity.Principal, sub Submission) (Document, error) {
	if err := identity.Authorize(caller, identity.RoleResident); err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(sub.Type) == "" || strings.TrimSpace(sub.Title) == "" {
		return Document{}, fmt.Errorf("%w: document type and title are required", identity.ErrInvalidInput)
	}
	doc := &Document{
		OwnerID:   caller.UserID,
		Type:      strings.TrimSpace(sub.Type),
		Title:     strings.TrimSpace(sub.Title),
		Status:    StatusPending,
		Link:      strings.TrimSpace(sub.Link),
		Number:    strings.TrimSpace(sub.Number),
		IssuedAt:  sub.IssuedAt,
		ExpiresAt: sub.ExpiresAt,
		Metadata:  sub.Metadata,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return *doc, nil
}

// Get returns a document. Residents may fetch only their own records.
func (s *Service) Get(ctx context.Context, caller identity.Principal, id string) (Document, error) {
	doc, err := s.store.Find(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := identity.AuthorizeOwner(caller, doc.OwnerID, identity.RoleResident, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return Document{}, err
	}
	return *doc, nil
}

// ListByOwner returns a user's documents, ownership-gated for residents.
func (s *Service) ListByOwner(ctx context.Context, caller identity.Principal, ownerID string) ([]Document, error) {
	if err := identity.AuthorizeOwner(caller, ownerID, identity.RoleResident, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return nil, err
	}
	return s.collect(s.store.ListByOwner(ctx, ownerID))
}

// List returns every document. Admin tiers only.
func (s *Service) List(ctx context.Context, caller identity.Principal) ([]Document, error) {
	if err := identity.Authorize(caller, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return nil, err
	}
	return s.collect(s.store.List(ctx))
}

// Review applies an approve/reject decision. Admin tiers only; the record
// must still be pending and the store re-checks that at write time.
func (s *Service) Review(ctx context.Context, caller identity.Principal, id string, decision Status, note string) (Document, error) {
	if err := identity.Authorize(caller, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return Document{}, err
	}
	if decision != StatusApproved && decision != StatusRejected {
		return Document{}, identity.ErrInvalidStatusValue
	}
	doc, err := s.store.Find(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.Status != StatusPending {
		return Document{}, identity.ErrInvalidStatus
	}
	updated, err := s.store.Transition(ctx, id, StatusPending, decision, note)
	if err != nil {
		return Document{}, err
	}
	s.notify(ctx, updated.OwnerID, fmt.Sprintf("Your document %q has been %s", updated.Title, decision))
	return *updated, nil
}

// Update applies admin metadata changes. Residents cannot alter a record
// once submitted, and status only moves through Review.
func (s *Service) Update(ctx context.Context, caller identity.Principal, id string, upd Update) (Document, error) {
	if err := identity.Authorize(caller, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return Document{}, err
	}
	doc, err := s.store.Update(ctx, id, upd)
	if err != nil {
		return Document{}, err
	}
	return *doc, nil
}

// Delete removes a record permanently. Top tier only.
func (s *Service) Delete(ctx context.Context, caller identity.Principal, id string) error {
	if err := identity.Authorize(caller, identity.RoleKebeleAdmin); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) collect(records []*Document, err error) ([]Document, error) {
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(records))
	for _, d := range records {
		out = append(out, *d)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, userID, message)
}
