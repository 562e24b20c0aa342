package identity

import (
	"context"
	"time"
)

// UserUpdate carries partial user mutations. Nil fields are left unchanged.
type UserUpdate struct {
	Name         *string
	Phone        *string
	Address      *string
	PasswordHash *string
	FederatedID  *string
}

// UserStore is the credential store the workflow depends on. Implementations
// must enforce email uniqueness (losers of a concurrent registration race
// see ErrDuplicateIdentity) and serialize status transitions: Transition
// re-checks the precondition at write time and returns ErrInvalidStatus
// when it no longer holds, rather than silently overwriting.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	Transition(ctx context.Context, id string, from, to Status, reviewedBy Role, reviewerID, reason string) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*User, error)
}

// touch stamps updated-at for store implementations.
func touch(u *User, now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}
