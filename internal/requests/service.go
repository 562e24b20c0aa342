package requests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"kebeleportal.org/internal/identity"
	"kebeleportal.org/internal/ids"
)

const defaultEstimatedDays = 3

// legal transition edges: Queued → InReview → Approved | Rejected.
var legalEdges = map[Status][]Status{
	StatusQueued:   {StatusInReview},
	StatusInReview: {StatusApproved, StatusRejected},
}

// Service enforces the service-request workflow. Residents submit and read
// their own requests; admin tiers move them through the queue.
type Service struct {
	store    Store
	notifier identity.Notifier
	now      func() time.Time
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

// NewService constructs the service-request service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("request store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit files a new service request for the calling resident. The owner is
// stamped from the verified token; renewal requests must carry the previous
// ID details, first-time requests must not.
func (s *Service) Submit(ctx context.Context, caller identity.Principal, sub Submission) (ServiceRequest, error) {
	if err := identity.Authorize(caller, identity.RoleResident); err != nil {
		return ServiceRequest{}, err
	}
	if sub.Type != TypeNewID && sub.Type != TypeRenewal {
		return ServiceRequest{}, fmt.Errorf("%w: request type must be NewID or Renewal", identity.ErrInvalidInput)
	}
	if sub.Type == TypeRenewal && (sub.PreviousID == nil || sub.PreviousID.Number == "") {
		return ServiceRequest{}, fmt.Errorf("%w: renewal requires previous ID details", identity.ErrInvalidInput)
	}
	if sub.Type == TypeNewID && sub.PreviousID != nil {
		return ServiceRequest{}, fmt.Errorf("%w: previous ID details only apply to renewals", identity.ErrInvalidInput)
	}
	priority := sub.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	req := &ServiceRequest{
		OwnerID:       caller.UserID,
		Type:          sub.Type,
		Documents:     sub.Documents,
		PreviousID:    sub.PreviousID,
		Status:        StatusQueued,
		Priority:      priority,
		EstimatedDays: defaultEstimatedDays,
		Receipt:       ids.Receipt(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return ServiceRequest{}, err
	}
	return *req, nil
}

// Get returns a request. Residents may fetch only their own.
func (s *Service) Get(ctx context.Context, caller identity.Principal, id string) (ServiceRequest, error) {
	req, err := s.store.Find(ctx, id)
	if err != nil {
		return ServiceRequest{}, err
	}
	if err := identity.AuthorizeOwner(caller, req.OwnerID, identity.RoleResident, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return ServiceRequest{}, err
	}
	return *req, nil
}

// ListByOwner returns a user's requests, ownership-gated for residents.
func (s *Service) ListByOwner(ctx context.Context, caller identity.Principal, ownerID string) ([]ServiceRequest, error) {
	if err := identity.AuthorizeOwner(caller, ownerID, identity.RoleResident, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return nil, err
	}
	return s.collect(s.store.ListByOwner(ctx, ownerID))
}

// List returns every request. Admin tiers only.
func (s *Service) List(ctx context.Context, caller identity.Principal) ([]ServiceRequest, error) {
	if err := identity.Authorize(caller, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return nil, err
	}
	return s.collect(s.store.List(ctx))
}

// Queue returns open requests in processing order: priority first, oldest
// first within a priority band. Admin tiers only.
func (s *Service) Queue(ctx context.Context, caller identity.Principal) ([]ServiceRequest, error) {
	if err := identity.Authorize(caller, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return nil, err
	}
	open, err := s.collect(s.store.ListOpen(ctx))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Priority.rank() != open[j].Priority.rank() {
			return open[i].Priority.rank() < open[j].Priority.rank()
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	return open, nil
}

// Advance moves a request along the workflow. Admin tiers only; the only
// legal edges are Queued→InReview and InReview→Approved/Rejected, and the
// store re-checks the from-status at write time.
func (s *Service) Advance(ctx context.Context, caller identity.Principal, id string, next Status, note string) (ServiceRequest, error) {
	if err := identity.Authorize(caller, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return ServiceRequest{}, err
	}
	req, err := s.store.Find(ctx, id)
	if err != nil {
		return ServiceRequest{}, err
	}
	if !edgeAllowed(req.Status, next) {
		return ServiceRequest{}, identity.ErrInvalidStatus
	}
	updated, err := s.store.Transition(ctx, id, req.Status, next, note)
	if err != nil {
		return ServiceRequest{}, err
	}
	if updated.Status.Terminal() {
		s.notify(ctx, updated.OwnerID, fmt.Sprintf("Your %s request %s has been %s", updated.Type, updated.Receipt, updated.Status))
	}
	return *updated, nil
}

// Delete removes a request permanently. Top tier only.
func (s *Service) Delete(ctx context.Context, caller identity.Principal, id string) error {
	if err := identity.Authorize(caller, identity.RoleKebeleAdmin); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func edgeAllowed(from, to Status) bool {
	for _, next := range legalEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Service) collect(records []*ServiceRequest, err error) ([]ServiceRequest, error) {
	if err != nil {
		return nil, err
	}
	out := make([]ServiceRequest, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, userID, message)
}
