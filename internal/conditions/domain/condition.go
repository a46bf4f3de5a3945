// Package domain provides the underwriting condition lifecycle.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a condition's position in its six-step lifecycle.
type Status string

const (
	StatusAdded        Status = "added"
	StatusRequested    Status = "requested"
	StatusReRequested  Status = "re-requested"
	StatusCollected    Status = "collected"
	StatusSentToLender Status = "sent-to-lender"
	StatusCleared      Status = "cleared"
)

var orderedStatuses = []Status{
	StatusAdded,
	StatusRequested,
	StatusReRequested,
	StatusCollected,
	StatusSentToLender,
	StatusCleared,
}

// Priority ranks how urgently a condition must be satisfied.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ErrDocumentRequired blocks a move into a document-backed status while no
// document is attached.
var ErrDocumentRequired = errors.New("attach a document before moving this condition forward")

// Condition is one underwriting requirement attached to a lead.
type Condition struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	Title      string
	Status     Status
	DocumentID *string
	DueDate    *time.Time
	Priority   Priority
	NeededFrom string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// Version guards read-modify-write edits against concurrent changes.
	Version    int
}

// HistoryEntry records one status change. Entries are append-only.
type HistoryEntry struct {
	ID          uuid.UUID
	ConditionID uuid.UUID
	ActorID     uuid.UUID
	OldStatus   Status
	NewStatus   Status
	ChangedAt   time.Time
}

// ParseStatus resolves a status key, case-insensitively.
func ParseStatus(input string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(input)))
	for _, status := range orderedStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// ParsePriority resolves a priority, defaulting to medium when blank.
func ParsePriority(input string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(input))) {
	case "", PriorityMedium:
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	case PriorityHigh:
		return PriorityHigh, true
	}
	return "", false
}

// Position returns the 1-based ordinal of the status, or 0 when unknown.
func (s Status) Position() int {
	for i, status := range orderedStatuses {
		if status == s {
			return i + 1
		}
	}
	return 0
}

// IsEarly reports whether the condition has not yet produced a document.
func (s Status) IsEarly() bool {
	return s == StatusAdded || s == StatusRequested || s == StatusReRequested
}

// IsDocumentBacked reports whether the status implies a collected document.
// Entering one of these statuses is recorded in the condition history.
func (s Status) IsDocumentBacked() bool {
	return s == StatusCollected || s == StatusSentToLender || s == StatusCleared
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(orderedStatuses))
	copy(out, orderedStatuses)
	return out
}

// HasDocument reports whether a document reference is attached.
func (c Condition) HasDocument() bool {
	return c.DocumentID != nil && strings.TrimSpace(*c.DocumentID) != ""
}
