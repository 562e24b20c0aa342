// Package notify records workflow decision notifications for residents.
// Delivery beyond the portal inbox (SMS, email) is a collaborator concern;
// this package owns the persisted inbox only.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"kebeleportal.org/internal/identity"
)

const defaultChannel = "portal"

// Notification is a single inbox entry for a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the narrow repository interface for notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	Find(ctx context.Context, id string) (*Notification, error)
	ListByUser(ctx context.Context, userID string) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) (*Notification, error)
}

// Service records and serves notifications. It satisfies identity.Notifier
// so the workflow services can emit decisions without importing this
// package's types.
type Service struct {
	store   Store
	publish func(Notification)
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithPublisher forwards every recorded notification to a live stream.
func WithPublisher(fn func(Notification)) ServiceOption {
	return func(s *Service) { s.publish = fn }
}

// NewService constructs the notification service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("notification store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ identity.Notifier = (*Service)(nil)

// Notify records a portal-channel notification for a user.
func (s *Service) Notify(ctx context.Context, userID, message string) error {
	userID = strings.TrimSpace(userID)
	message = strings.TrimSpace(message)
	if userID == "" || message == "" {
		return identity.ErrInvalidInput
	}
	n := &Notification{
		UserID:  userID,
		Message: message,
		Channel: defaultChannel,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	if s.publish != nil {
		s.publish(*n)
	}
	return nil
}

// ListByUser returns a user's notifications, ownership-gated for residents.
func (s *Service) ListByUser(ctx context.Context, caller identity.Principal, userID string) ([]Notification, error) {
	if err := identity.AuthorizeOwner(caller, userID, identity.RoleResident, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return nil, err
	}
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(records))
	for _, n := range records {
		out = append(out, *n)
	}
	return out, nil
}

// MarkRead flags a notification as seen. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, caller identity.Principal, id string) (Notification, error) {
	n, err := s.store.Find(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if err := identity.AuthorizeOwner(caller, n.UserID, identity.RoleResident, identity.RoleGoxeAdmin, identity.RoleKebeleAdmin); err != nil {
		return Notification{}, err
	}
	updated, err := s.store.MarkRead(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	return *updated, nil
}
