package scheduler

import (
	"context"
	"errors"
	"fmt"

	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/platform/config"
	"loan_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadReader loads the lead a reminder refers to.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	leads  LeadReader
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads LeadReader, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		leads:  leads,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskLeadTaskDue, w.handleLeadTaskDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleLeadTaskDue reloads the lead and publishes the reminder only while
// the lead still waits in pending-app with the same due date.
func (w *Worker) handleLeadTaskDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadTaskDuePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	lead, err := w.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if lead.Stage != string(domain.StagePendingApp) || lead.TaskDueAt == nil || !lead.TaskDueAt.Equal(payload.DueAt) {
		w.log.Debug("dropping stale task due reminder", "leadId", leadID, "stage", lead.Stage)
		return nil
	}

	if w.bus == nil {
		return nil
	}

	return w.bus.PublishSync(ctx, events.LeadTaskDue{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		DueAt:     *lead.TaskDueAt,
	})
}
