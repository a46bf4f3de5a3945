// Package notification provides event handlers that deliver pipeline
// notices (SSE refresh signals and processing-inbox emails) in response to
// domain events. Domain modules publish events and never talk to delivery
// channels directly.
package notification

import (
	"context"

	"loan_pipeline_backend/internal/email"
	"loan_pipeline_backend/internal/events"
	apphttp "loan_pipeline_backend/internal/http"
	"loan_pipeline_backend/internal/notification/sse"
	"loan_pipeline_backend/platform/config"
	"loan_pipeline_backend/platform/httpkit"
	"loan_pipeline_backend/platform/logger"
	"loan_pipeline_backend/platform/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	dueDateLayout        = "Jan 2, 2006"
	conditionStatusClear = "cleared"
)

// Module is the notification bounded context module.
type Module struct {
	sender email.Sender
	inbox  string
	sse    *sse.Service
	log    *logger.Logger
}

// New creates the notification module. Emails go to the configured
// processing inbox; a nil sender disables email delivery.
func New(sender email.Sender, cfg config.EmailConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Module{
		sender: sender,
		inbox:  cfg.GetProcessingInbox(),
		sse:    sse.New(log),
		log:    log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE returns the SSE service for external use.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the lead refresh stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/leads/stream", m.sse.Handler(userIDFromContext))
}

// RegisterHandlers subscribes the module to the events it delivers.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadChanged{}.EventName(), m)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), m)
	bus.Subscribe(events.PastClientReferred{}.EventName(), m)
	bus.Subscribe(events.LeadTaskDue{}.EventName(), m)
	bus.Subscribe(events.ConditionStatusChanged{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadChanged:
		return m.handleLeadChanged(ctx, e)
	case events.LeadStageChanged:
		return m.handleLeadStageChanged(ctx, e)
	case events.PastClientReferred:
		return m.handlePastClientReferred(ctx, e)
	case events.LeadTaskDue:
		return m.handleLeadTaskDue(ctx, e)
	case events.ConditionStatusChanged:
		return m.handleConditionStatusChanged(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadChanged(_ context.Context, e events.LeadChanged) error {
	m.sse.Broadcast(sse.Event{Type: sse.EventLeadUpdated, LeadID: e.LeadID, Message: e.Reason})
	return nil
}

func (m *Module) handleLeadStageChanged(_ context.Context, e events.LeadStageChanged) error {
	m.sse.Broadcast(sse.Event{
		Type:   sse.EventStageChanged,
		LeadID: e.LeadID,
		Data: map[string]interface{}{
			"fromStage": e.FromStage,
			"toStage":   e.ToStage,
			"bypassed":  e.Bypassed,
		},
	})
	return nil
}

func (m *Module) handlePastClientReferred(_ context.Context, e events.PastClientReferred) error {
	m.sse.Broadcast(sse.Event{
		Type:   sse.EventLeadCreated,
		LeadID: e.ReferralLeadID,
		Data:   map[string]interface{}{"sourceLeadId": e.SourceLeadID},
	})
	return nil
}

func (m *Module) handleLeadTaskDue(ctx context.Context, e events.LeadTaskDue) error {
	m.sse.Broadcast(sse.Event{Type: sse.EventTaskDue, LeadID: e.LeadID, Message: "application follow-up due"})
	metrics.TaskDueReminders.Inc()

	if m.inbox == "" {
		return nil
	}
	notice := email.TaskDueNotice{
		LeadID:       e.LeadID.String(),
		BorrowerName: borrowerName(e.FirstName, e.LastName),
		DueDate:      e.DueAt.Format(dueDateLayout),
	}
	if err := m.sender.SendTaskDueEmail(ctx, m.inbox, notice); err != nil {
		m.log.Error("failed to send task due email", "leadId", e.LeadID, "error", err)
		return err
	}
	return nil
}

func (m *Module) handleConditionStatusChanged(ctx context.Context, e events.ConditionStatusChanged) error {
	m.sse.Broadcast(sse.Event{
		Type:   sse.EventConditionUpdated,
		LeadID: e.LeadID,
		Data: map[string]interface{}{
			"conditionId": e.ConditionID,
			"oldStatus":   e.OldStatus,
			"newStatus":   e.NewStatus,
		},
	})

	if e.NewStatus != conditionStatusClear || m.inbox == "" {
		return nil
	}
	notice := email.ConditionStatusNotice{
		LeadID:    e.LeadID.String(),
		Title:     e.Title,
		OldStatus: e.OldStatus,
		NewStatus: e.NewStatus,
	}
	if err := m.sender.SendConditionStatusEmail(ctx, m.inbox, notice); err != nil {
		m.log.Error("failed to send condition status email", "conditionId", e.ConditionID, "error", err)
		return err
	}
	return nil
}

func borrowerName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.GetIdentity(c)
	if identity == nil || !identity.IsAuthenticated() {
		return uuid.Nil, false
	}
	return identity.UserID(), true
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
