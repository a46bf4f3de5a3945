// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"loan_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadChanged is the fire-and-forget refresh signal published after every
// successful lead or condition write.
type LeadChanged struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func (e LeadChanged) EventName() string { return "leads.lead.changed" }

// LeadStageChanged is published when a lead moves between pipeline stages.
type LeadStageChanged struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	ActorID    uuid.UUID  `json:"actorId"`
	FromStage  string     `json:"fromStage"`
	ToStage    string     `json:"toStage"`
	Bypassed   bool       `json:"bypassed"`
	Backfilled []string   `json:"backfilled,omitempty"`
	TaskDueAt  *time.Time `json:"taskDueAt,omitempty"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// PastClientReferred is published when a past client's "New Lead" status
// creates a referral lead.
type PastClientReferred struct {
	BaseEvent
	SourceLeadID   uuid.UUID `json:"sourceLeadId"`
	ReferralLeadID uuid.UUID `json:"referralLeadId"`
}

func (e PastClientReferred) EventName() string { return "leads.past_client.referred" }

// LeadTaskDue is published by the scheduler when a pending application's
// follow-up task falls due.
type LeadTaskDue struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	DueAt     time.Time `json:"dueAt"`
}

func (e LeadTaskDue) EventName() string { return "leads.task.due" }

// =============================================================================
// Condition Domain Events
// =============================================================================

// ConditionStatusChanged is published after a condition status change has
// been persisted.
type ConditionStatusChanged struct {
	BaseEvent
	ConditionID uuid.UUID `json:"conditionId"`
	LeadID      uuid.UUID `json:"leadId"`
	Title       string    `json:"title"`
	ActorID     uuid.UUID `json:"actorId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
}

func (e ConditionStatusChanged) EventName() string { return "conditions.status.changed" }
