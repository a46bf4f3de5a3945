// Package service implements the underwriting condition workflow: creation,
// inline edits, the document-gated status lifecycle and history.
package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"loan_pipeline_backend/internal/conditions/domain"
	"loan_pipeline_backend/internal/conditions/repository"
	"loan_pipeline_backend/internal/conditions/transport"
	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/platform/apperr"
	"loan_pipeline_backend/platform/clock"
	"loan_pipeline_backend/platform/logger"
	"loan_pipeline_backend/platform/metrics"
	"loan_pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgConditionNotFound = "condition not found"
	msgLeadNotFound      = "lead not found"
	msgConditionConflict = "condition was changed by another request, reload and retry"
	dateLayout           = "2006-01-02"
)

// Repository defines the data access needed by the condition service.
type Repository interface {
	LeadExists(ctx context.Context, leadID uuid.UUID) (bool, error)
	Create(ctx context.Context, conditions ...domain.Condition) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Condition, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Condition, error)
	Save(ctx context.Context, c domain.Condition, history *domain.HistoryEntry) (domain.Condition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListHistory(ctx context.Context, conditionID uuid.UUID) ([]domain.HistoryEntry, error)
}

// DocumentStore checks and stores condition documents.
type DocumentStore interface {
	Exists(ctx context.Context, documentID string) (bool, error)
	UploadConditionDocument(ctx context.Context, leadID, conditionID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error)
}

// NotificationHook receives the refresh signal after a successful write.
type NotificationHook interface {
	OnLeadChanged(ctx context.Context, leadID uuid.UUID, reason string)
}

// Service handles condition operations.
type Service struct {
	repo      Repository
	documents DocumentStore
	hook      NotificationHook
	eventBus  events.Bus
	clock     clock.Clock
	log       *logger.Logger
}

// New creates a new condition service.
func New(repo Repository, documents DocumentStore, hook NotificationHook, eventBus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, documents: documents, hook: hook, eventBus: eventBus, clock: clk, log: log}
}

// List returns the conditions of a lead in creation order.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) (transport.ConditionListResponse, error) {
	items, err := s.ListForLead(ctx, leadID)
	if err != nil {
		return transport.ConditionListResponse{}, err
	}
	return toListResponse(items), nil
}

// ListForLead returns the domain conditions of a lead.
func (s *Service) ListForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Condition, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}
	return s.repo.ListByLead(ctx, leadID)
}

// Create adds a single condition to a lead.
func (s *Service) Create(ctx context.Context, leadID uuid.UUID, req transport.CreateConditionRequest) (transport.ConditionResponse, error) {
	created, err := s.createAll(ctx, leadID, []transport.CreateConditionRequest{req})
	if err != nil {
		return transport.ConditionResponse{}, err
	}
	return toResponse(created[0]), nil
}

// Import adds a batch of conditions to a lead. Either every item is stored
// or none is.
func (s *Service) Import(ctx context.Context, leadID uuid.UUID, req transport.ImportConditionsRequest) (transport.ConditionListResponse, error) {
	created, err := s.createAll(ctx, leadID, req.Items)
	if err != nil {
		return transport.ConditionListResponse{}, err
	}
	return toListResponse(created), nil
}

func (s *Service) createAll(ctx context.Context, leadID uuid.UUID, items []transport.CreateConditionRequest) ([]domain.Condition, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("at least one condition is required")
	}
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	conditions := make([]domain.Condition, 0, len(items))
	for i, item := range items {
		condition, err := newCondition(leadID, item, now)
		if err != nil {
			if len(items) > 1 {
				return nil, apperr.Validation(err.Error()).WithDetails(map[string]int{"index": i})
			}
			return nil, err
		}
		conditions = append(conditions, condition)
	}

	if err := s.repo.Create(ctx, conditions...); err != nil {
		return nil, s.persistFailed(leadID, err)
	}

	s.notify(ctx, leadID, "conditions_created")
	return conditions, nil
}

func newCondition(leadID uuid.UUID, req transport.CreateConditionRequest, now time.Time) (domain.Condition, error) {
	title := sanitize.Line(req.Title)
	if title == "" {
		return domain.Condition{}, apperr.Validation("condition title is required")
	}

	priority, ok := domain.ParsePriority(req.Priority)
	if !ok {
		return domain.Condition{}, apperr.Validation("invalid priority")
	}

	status := domain.StatusAdded
	if req.Status != "" {
		status, ok = domain.ParseStatus(req.Status)
		if !ok {
			return domain.Condition{}, apperr.Validation("invalid condition status")
		}
		// A new condition has no document, so it may only start early.
		if !status.IsEarly() {
			return domain.Condition{}, documentRequired()
		}
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return domain.Condition{}, err
	}

	return domain.Condition{
		ID:         uuid.New(),
		LeadID:     leadID,
		Title:      title,
		Status:     status,
		DueDate:    dueDate,
		Priority:   priority,
		NeededFrom: sanitize.Line(req.NeededFrom),
		Notes:      sanitize.Text(req.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}, nil
}

// Update applies an inline edit of the descriptive fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateConditionRequest) (transport.ConditionResponse, error) {
	condition, err := s.get(ctx, id)
	if err != nil {
		return transport.ConditionResponse{}, err
	}

	if req.Title != nil {
		title := sanitize.Line(*req.Title)
		if title == "" {
			return transport.ConditionResponse{}, apperr.Validation("condition title is required")
		}
		condition.Title = title
	}
	if req.Priority != nil {
		priority, ok := domain.ParsePriority(*req.Priority)
		if !ok {
			return transport.ConditionResponse{}, apperr.Validation("invalid priority")
		}
		condition.Priority = priority
	}
	if req.NeededFrom != nil {
		condition.NeededFrom = sanitize.Line(*req.NeededFrom)
	}
	if req.Notes != nil {
		condition.Notes = sanitize.Text(*req.Notes)
	}
	if req.ClearDue {
		condition.DueDate = nil
	} else if req.DueDate != nil {
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			return transport.ConditionResponse{}, err
		}
		condition.DueDate = dueDate
	}

	condition.UpdatedAt = s.clock.Now()
	saved, err := s.save(ctx, condition, nil)
	if err != nil {
		return transport.ConditionResponse{}, err
	}

	s.notify(ctx, saved.LeadID, "condition_updated")
	return toResponse(saved), nil
}

// SetStatus moves a condition through its lifecycle. The returned change
// tells the caller whether its optimistic copy stands.
func (s *Service) SetStatus(ctx context.Context, id, actorID uuid.UUID, req transport.SetConditionStatusRequest) (transport.StatusChangeResponse, error) {
	target, ok := domain.ParseStatus(req.Status)
	if !ok {
		return transport.StatusChangeResponse{}, apperr.Validation("invalid condition status")
	}

	condition, err := s.get(ctx, id)
	if err != nil {
		return transport.StatusChangeResponse{}, err
	}

	change, err := domain.SetStatus(condition, target, actorID, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrDocumentRequired) {
			metrics.ConditionDocumentGates.Inc()
			return transport.StatusChangeResponse{}, documentRequired().WithDetails(toStatusChangeResponse(change))
		}
		return transport.StatusChangeResponse{}, err
	}
	if !change.Applied {
		return toStatusChangeResponse(change), nil
	}

	saved, err := s.save(ctx, change.Condition, change.History)
	if err != nil {
		return transport.StatusChangeResponse{}, err
	}
	change.Condition = saved

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ConditionStatusChanged{
			BaseEvent:   events.NewBaseEventAt(change.Condition.UpdatedAt),
			ConditionID: change.Condition.ID,
			LeadID:      change.Condition.LeadID,
			Title:       change.Condition.Title,
			ActorID:     actorID,
			OldStatus:   string(change.Previous),
			NewStatus:   string(change.Current),
		})
	}
	s.notify(ctx, change.Condition.LeadID, "condition_status_changed")
	return toStatusChangeResponse(change), nil
}

// AttachDocument links an already stored document to the condition.
func (s *Service) AttachDocument(ctx context.Context, id uuid.UUID, req transport.AttachDocumentRequest) (transport.ConditionResponse, error) {
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return transport.ConditionResponse{}, apperr.Validation("documentId is required")
	}

	condition, err := s.get(ctx, id)
	if err != nil {
		return transport.ConditionResponse{}, err
	}

	if s.documents == nil {
		return transport.ConditionResponse{}, apperr.Internal("document storage is not configured")
	}
	exists, err := s.documents.Exists(ctx, documentID)
	if err != nil {
		return transport.ConditionResponse{}, err
	}
	if !exists {
		return transport.ConditionResponse{}, apperr.Validation("document not found in storage")
	}

	return s.attach(ctx, condition, documentID)
}

// UploadDocument stores a file and attaches it to the condition.
func (s *Service) UploadDocument(ctx context.Context, id uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (transport.ConditionResponse, error) {
	condition, err := s.get(ctx, id)
	if err != nil {
		return transport.ConditionResponse{}, err
	}
	if s.documents == nil {
		return transport.ConditionResponse{}, apperr.Internal("document storage is not configured")
	}

	documentID, err := s.documents.UploadConditionDocument(ctx, condition.LeadID, condition.ID, fileName, contentType, reader, size)
	if err != nil {
		return transport.ConditionResponse{}, err
	}

	return s.attach(ctx, condition, documentID)
}

func (s *Service) attach(ctx context.Context, condition domain.Condition, documentID string) (transport.ConditionResponse, error) {
	condition.DocumentID = &documentID
	condition.UpdatedAt = s.clock.Now()
	saved, err := s.save(ctx, condition, nil)
	if err != nil {
		return transport.ConditionResponse{}, err
	}

	s.notify(ctx, saved.LeadID, "condition_document_attached")
	return toResponse(saved), nil
}

// Delete removes a condition. Deletion is never gated.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	condition, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgConditionNotFound)
		}
		return s.persistFailed(condition.LeadID, err)
	}

	s.notify(ctx, condition.LeadID, "condition_deleted")
	return nil
}

// History lists the recorded status changes of a condition.
func (s *Service) History(ctx context.Context, id uuid.UUID) (transport.HistoryResponse, error) {
	entries, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return transport.HistoryResponse{}, err
	}
	if len(entries) == 0 {
		if _, err := s.get(ctx, id); err != nil {
			return transport.HistoryResponse{}, err
		}
	}

	items := make([]transport.HistoryEntryResponse, len(entries))
	for i, entry := range entries {
		items[i] = toHistoryResponse(entry)
	}
	return transport.HistoryResponse{Items: items}, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (domain.Condition, error) {
	condition, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Condition{}, apperr.NotFound(msgConditionNotFound)
		}
		return domain.Condition{}, err
	}
	return condition, nil
}

// save writes condition guarded by the version it was read at. A concurrent
// write in between is a conflict and nothing is stored.
func (s *Service) save(ctx context.Context, condition domain.Condition, history *domain.HistoryEntry) (domain.Condition, error) {
	saved, err := s.repo.Save(ctx, condition, history)
	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, repository.ErrNotFound):
		return domain.Condition{}, apperr.NotFound(msgConditionNotFound)
	case errors.Is(err, repository.ErrVersionConflict):
		return domain.Condition{}, apperr.Wrap(apperr.KindConflict, msgConditionConflict, err)
	}
	return domain.Condition{}, s.persistFailed(condition.LeadID, err)
}

func (s *Service) ensureLead(ctx context.Context, leadID uuid.UUID) error {
	exists, err := s.repo.LeadExists(ctx, leadID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound(msgLeadNotFound)
	}
	return nil
}

func (s *Service) persistFailed(leadID uuid.UUID, err error) error {
	classified := apperr.Persistence(err)
	outcome := "failed"
	if apperr.Is(classified, apperr.KindUnknownOutcome) {
		outcome = "unknown"
	}
	metrics.PersistenceFailures.WithLabelValues("condition", outcome).Inc()
	if s.log != nil {
		s.log.PersistenceFailure("condition", leadID.String(), err)
	}
	return classified
}

func (s *Service) notify(ctx context.Context, leadID uuid.UUID, reason string) {
	if s.hook != nil {
		s.hook.OnLeadChanged(ctx, leadID, reason)
	}
}

func documentRequired() *apperr.Error {
	return apperr.Wrap(apperr.KindUnprocessable, domain.ErrDocumentRequired.Error(), domain.ErrDocumentRequired)
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, apperr.Validation("dueDate must be formatted as YYYY-MM-DD")
	}
	return &parsed, nil
}
