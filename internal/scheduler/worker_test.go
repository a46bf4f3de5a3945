package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeLeadReader struct {
	lead domain.Lead
	err  error
}

func (f fakeLeadReader) GetByID(context.Context, uuid.UUID) (domain.Lead, error) {
	return f.lead, f.err
}

func newTestWorker(reader LeadReader) (*Worker, *[]events.LeadTaskDue) {
	bus := events.NewInMemoryBus(logger.Discard())
	received := &[]events.LeadTaskDue{}
	bus.Subscribe(events.LeadTaskDue{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		*received = append(*received, event.(events.LeadTaskDue))
		return nil
	}))
	return &Worker{leads: reader, bus: bus, log: logger.Discard()}, received
}

func taskFor(t *testing.T, leadID uuid.UUID, dueAt time.Time) *asynq.Task {
	t.Helper()
	task, err := NewLeadTaskDueTask(LeadTaskDuePayload{LeadID: leadID.String(), DueAt: dueAt})
	if err != nil {
		t.Fatalf("expected task, got %v", err)
	}
	return task
}

func TestHandleLeadTaskDuePublishesForPendingApp(t *testing.T) {
	dueAt := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lead := domain.Lead{ID: uuid.New(), Stage: "pending-app", TaskDueAt: &dueAt, FirstName: "Dana"}
	w, received := newTestWorker(fakeLeadReader{lead: lead})

	if err := w.handleLeadTaskDue(context.Background(), taskFor(t, lead.ID, dueAt)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(*received) != 1 || (*received)[0].FirstName != "Dana" {
		t.Fatalf("expected one reminder, got %+v", *received)
	}
}

func TestHandleLeadTaskDueDropsStaleReminder(t *testing.T) {
	dueAt := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	moved := domain.Lead{ID: uuid.New(), Stage: "screening", TaskDueAt: &dueAt}
	w, received := newTestWorker(fakeLeadReader{lead: moved})

	if err := w.handleLeadTaskDue(context.Background(), taskFor(t, moved.ID, dueAt)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	later := dueAt.Add(48 * time.Hour)
	rescheduled := domain.Lead{ID: uuid.New(), Stage: "pending-app", TaskDueAt: &later}
	w.leads = fakeLeadReader{lead: rescheduled}
	if err := w.handleLeadTaskDue(context.Background(), taskFor(t, rescheduled.ID, dueAt)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(*received) != 0 {
		t.Fatalf("expected stale reminders to be dropped, got %d", len(*received))
	}
}

func TestHandleLeadTaskDueIgnoresDeletedLead(t *testing.T) {
	w, received := newTestWorker(fakeLeadReader{err: repository.ErrNotFound})

	if err := w.handleLeadTaskDue(context.Background(), taskFor(t, uuid.New(), time.Now())); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(*received) != 0 {
		t.Fatalf("expected no reminder for a missing lead")
	}
}

func TestHandleLeadTaskDueRejectsMalformedPayload(t *testing.T) {
	w, _ := newTestWorker(fakeLeadReader{})

	err := w.handleLeadTaskDue(context.Background(), asynq.NewTask(TaskLeadTaskDue, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestLeadTaskDueIDIsStable(t *testing.T) {
	dueAt := time.Date(2026, 3, 14, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))
	payload := LeadTaskDuePayload{LeadID: "abc", DueAt: dueAt}
	if got := leadTaskDueID(payload); got != "leads.task_due:abc:2026-03-14T05:00:00Z" {
		t.Fatalf("expected UTC-normalized task id, got %s", got)
	}
}
