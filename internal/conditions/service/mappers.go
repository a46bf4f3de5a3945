package service

import (
	"loan_pipeline_backend/internal/conditions/domain"
	"loan_pipeline_backend/internal/conditions/transport"

	"github.com/google/uuid"
)

func toResponse(c domain.Condition) transport.ConditionResponse {
	var dueDate *string
	if c.DueDate != nil {
		formatted := c.DueDate.Format(dateLayout)
		dueDate = &formatted
	}
	return transport.ConditionResponse{
		ID:         c.ID,
		LeadID:     c.LeadID,
		Title:      c.Title,
		Status:     string(c.Status),
		Position:   c.Status.Position(),
		DocumentID: c.DocumentID,
		DueDate:    dueDate,
		Priority:   string(c.Priority),
		NeededFrom: c.NeededFrom,
		Notes:      c.Notes,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func toListResponse(items []domain.Condition) transport.ConditionListResponse {
	out := make([]transport.ConditionResponse, len(items))
	for i, item := range items {
		out[i] = toResponse(item)
	}
	return transport.ConditionListResponse{Items: out}
}

func toStatusChangeResponse(change domain.StatusChange) transport.StatusChangeResponse {
	return transport.StatusChangeResponse{
		Previous:  string(change.Previous),
		Current:   string(change.Current),
		Applied:   change.Applied,
		Condition: toResponse(change.Condition),
	}
}

func toHistoryResponse(entry domain.HistoryEntry) transport.HistoryEntryResponse {
	resp := transport.HistoryEntryResponse{
		ID:        entry.ID,
		OldStatus: string(entry.OldStatus),
		NewStatus: string(entry.NewStatus),
		ChangedAt: entry.ChangedAt,
	}
	if entry.ActorID != uuid.Nil {
		actor := entry.ActorID
		resp.ActorID = &actor
	}
	return resp
}
