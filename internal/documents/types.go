package documents

import (
	"strings"
	"time"
)

// Status is the approval state of a document record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus normalizes a review decision label.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}

// Document is an identity document submitted by a resident. The core schema
// is fixed; provider- or type-specific extras live in the explicit Metadata
// map rather than loose fields.
type Document struct {
	ID         string         `json:"id"`
	OwnerID    string         `json:"owner_id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     Status         `json:"status"`
	Link       string         `json:"link,omitempty"`
	Number     string         `json:"number,omitempty"`
	ReviewNote string         `json:"review_note,omitempty"`
	IssuedAt   *time.Time     `json:"issued_at,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Submission is the resident-supplied part of a new document. The owner is
// stamped server-side from the verified principal, never from the payload.
type Submission struct {
	Type      string
	Title     string
	Link      string
	Number    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Metadata  map[string]any
}

// Update carries admin-applied metadata changes. Status never moves through
// here; reviews are the only path that touches it.
type Update struct {
	Title    *string
	Link     *string
	Number   *string
	Metadata map[string]any
}
