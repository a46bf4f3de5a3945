package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateConditionRequest struct {
	Title      string  `json:"title" validate:"required,min=1,max=300"`
	Status     string  `json:"status" validate:"omitempty,conditionstatus"`
	DueDate    *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Priority   string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	NeededFrom string  `json:"neededFrom" validate:"max=200"`
	Notes      string  `json:"notes" validate:"max=4000"`
}

type ImportConditionsRequest struct {
	Items []CreateConditionRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

type UpdateConditionRequest struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=300"`
	DueDate    *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	ClearDue   bool    `json:"clearDueDate"`
	Priority   *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	NeededFrom *string `json:"neededFrom" validate:"omitempty,max=200"`
	Notes      *string `json:"notes" validate:"omitempty,max=4000"`
}

type SetConditionStatusRequest struct {
	Status string `json:"status" validate:"required,conditionstatus"`
}

type AttachDocumentRequest struct {
	DocumentID string `json:"documentId" validate:"required,min=1,max=500"`
}

type ConditionResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Position   int       `json:"position"`
	DocumentID *string   `json:"documentId,omitempty"`
	DueDate    *string   `json:"dueDate,omitempty"`
	Priority   string    `json:"priority"`
	NeededFrom string    `json:"neededFrom"`
	Notes      string    `json:"notes"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ConditionListResponse struct {
	Items []ConditionResponse `json:"items"`
}

// StatusChangeResponse tells the client whether to keep its optimistic copy.
type StatusChangeResponse struct {
	Previous  string            `json:"previous"`
	Current   string            `json:"current"`
	Applied   bool              `json:"applied"`
	Condition ConditionResponse `json:"condition"`
}

type HistoryEntryResponse struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	ChangedAt time.Time  `json:"changedAt"`
}

type HistoryResponse struct {
	Items []HistoryEntryResponse `json:"items"`
}
