package requests

import "context"

// Store is the narrow repository interface for service requests. Transition
// carries its from-status into the write so a stale decision surfaces as
// identity.ErrInvalidStatus instead of silently overwriting.
type Store interface {
	Create(ctx context.Context, r *ServiceRequest) error
	Find(ctx context.Context, id string) (*ServiceRequest, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*ServiceRequest, error)
	List(ctx context.Context) ([]*ServiceRequest, error)
	ListOpen(ctx context.Context) ([]*ServiceRequest, error)
	Transition(ctx context.Context, id string, from, to Status, note string) (*ServiceRequest, error)
	Delete(ctx context.Context, id string) error
}
