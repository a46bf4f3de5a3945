package adapters

import (
	"context"

	conditionsvc "loan_pipeline_backend/internal/conditions/service"
	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/internal/leads/pipeline"

	"github.com/google/uuid"
)

// LeadChangedPublisher turns the refresh signal of lead and condition writes
// into a LeadChanged event. Publishing is fire-and-forget.
type LeadChangedPublisher struct {
	bus events.Bus
}

// NewLeadChangedPublisher creates a new refresh signal publisher.
func NewLeadChangedPublisher(bus events.Bus) *LeadChangedPublisher {
	return &LeadChangedPublisher{bus: bus}
}

// OnLeadChanged publishes the refresh signal for leadID.
func (p *LeadChangedPublisher) OnLeadChanged(ctx context.Context, leadID uuid.UUID, reason string) {
	p.bus.Publish(ctx, events.LeadChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Reason:    reason,
	})
}

// Compile-time checks.
var (
	_ pipeline.NotificationHook     = (*LeadChangedPublisher)(nil)
	_ conditionsvc.NotificationHook = (*LeadChangedPublisher)(nil)
)
