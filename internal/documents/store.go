package documents

import "context"

// Store is the narrow repository interface for document records. Transition
// must re-check the from-status at write time and surface
// identity.ErrInvalidStatus when the precondition no longer holds.
type Store interface {
	Create(ctx context.Context, d *Document) error
	Find(ctx context.Context, id string) (*Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)
	List(ctx context.Context) ([]*Document, error)
	Update(ctx context.Context, id string, upd Update) (*Document, error)
	Transition(ctx context.Context, id string, from, to Status, note string) (*Document, error)
	Delete(ctx context.Context, id string) error
}
