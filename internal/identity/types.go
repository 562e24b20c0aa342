package identity

import (
	"strings"
	"time"
)

// Status is the approval state of a user account.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// ParseStatus normalizes a status label supplied by a caller.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	case StatusSuspended:
		return StatusSuspended, true
	default:
		return "", false
	}
}

// User is a portal principal: a resident or one of the two admin tiers.
// Exactly one of PasswordHash or FederatedID is set at creation; a federated
// identity may be linked to a password account later.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	FederatedID  string          `json:"federated_id,omitempty"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone,omitempty"`
	Address      string          `json:"address,omitempty"`
	Role         Role            `json:"role"`
	Status       Status          `json:"status"`
	VerifiedBy   map[Role]string `json:"verified_by,omitempty"`
	ReviewReason string          `json:"review_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Principal is the verified identity attached to a request after token
// verification. It carries only what the token asserts.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// IsZero reports whether no principal was established.
func (p Principal) IsZero() bool {
	return strings.TrimSpace(p.UserID) == ""
}

// Registration is the input for local (password) account creation.
type Registration struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Address  string
	Role     Role
}

// ExternalProfile is a federated identity assertion already verified by the
// federation layer: a stable subject id plus the provider-verified email.
type ExternalProfile struct {
	Subject string
	Email   string
	Name    string
}
