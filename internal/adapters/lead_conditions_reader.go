package adapters

import (
	"context"

	"loan_pipeline_backend/internal/conditions/domain"
	leadsvc "loan_pipeline_backend/internal/leads/service"
	"loan_pipeline_backend/internal/leads/transport"

	"github.com/google/uuid"
)

// ConditionSource lists the conditions of a lead.
type ConditionSource interface {
	ListForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Condition, error)
}

// LeadConditionsReader adapts the conditions service for the lead detail view.
type LeadConditionsReader struct {
	source ConditionSource
}

// NewLeadConditionsReader creates a new lead conditions reader adapter.
func NewLeadConditionsReader(source ConditionSource) *LeadConditionsReader {
	return &LeadConditionsReader{source: source}
}

// ListConditionSummaries returns the lead's conditions in creation order.
func (r *LeadConditionsReader) ListConditionSummaries(ctx context.Context, leadID uuid.UUID) ([]transport.ConditionSummary, error) {
	items, err := r.source.ListForLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.ConditionSummary, 0, len(items))
	for _, item := range items {
		summary := transport.ConditionSummary{
			ID:         item.ID,
			Title:      item.Title,
			Status:     string(item.Status),
			DocumentID: item.DocumentID,
			Priority:   string(item.Priority),
		}
		if item.DueDate != nil {
			due := item.DueDate.Format("2006-01-02")
			summary.DueDate = &due
		}
		out = append(out, summary)
	}
	return out, nil
}

// Compile-time check that LeadConditionsReader implements leads/service.ConditionLister.
var _ leadsvc.ConditionLister = (*LeadConditionsReader)(nil)
