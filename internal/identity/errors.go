package identity

import "errors"

// Sentinel errors shared by the identity workflow and the resource services
// built on top of it. The HTTP layer maps each to a distinct status code;
// none are retried or swallowed.
var (
	ErrDuplicateIdentity  = errors.New("identity: duplicate identity")
	ErrNotFound           = errors.New("identity: not found")
	ErrInvalidCredential  = errors.New("identity: invalid credential")
	ErrNotApproved        = errors.New("identity: account not approved")
	ErrUnauthorized       = errors.New("identity: unauthorized")
	ErrForbidden          = errors.New("identity: forbidden")
	ErrInvalidStatus      = errors.New("identity: illegal status transition")
	ErrInvalidStatusValue = errors.New("identity: unsupported status value")
	ErrInvalidInput       = errors.New("identity: invalid input")
	ErrInvalidToken       = errors.New("identity: invalid token")
)
