package requests

import (
	"strings"
	"time"
)

// Type distinguishes a first-time ID request from a renewal.
type Type string

const (
	TypeNewID   Type = "NewID"
	TypeRenewal Type = "Renewal"
)

// ParseType normalizes a request type label.
func ParseType(raw string) (Type, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "newid":
		return TypeNewID, true
	case "renewal":
		return TypeRenewal, true
	default:
		return "", false
	}
}

// Status is the workflow state of a service request.
type Status string

const (
	StatusQueued   Status = "Queued"
	StatusInReview Status = "InReview"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus normalizes a workflow label.
func ParseStatus(raw string) (Status, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "queued":
		return StatusQueued, true
	case "inreview", "in_review":
		return StatusInReview, true
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Priority orders the processing queue.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority normalizes a priority label.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	default:
		return "", false
	}
}

// rank gives High the front of the queue.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// AttachedDocument is a supporting file referenced by a request.
type AttachedDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PreviousIDDetails identifies the ID being renewed. Required for renewal
// requests, absent otherwise.
type PreviousIDDetails struct {
	Number    string     `json:"number"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	Authority string     `json:"authority,omitempty"`
}

// ServiceRequest is a resident's application for an identity-document
// service.
type ServiceRequest struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"owner_id"`
	Type          Type               `json:"type"`
	Documents     []AttachedDocument `json:"documents,omitempty"`
	PreviousID    *PreviousIDDetails `json:"previous_id_details,omitempty"`
	Status        Status             `json:"status"`
	Priority      Priority           `json:"priority"`
	EstimatedDays int                `json:"estimated_processing_days"`
	Receipt       string             `json:"confirmation_receipt"`
	ReviewNote    string             `json:"review_note,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Submission is the resident-supplied part of a new request.
type Submission struct {
	Type       Type
	Documents  []AttachedDocument
	PreviousID *PreviousIDDetails
	Priority   Priority
}
