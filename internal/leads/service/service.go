// Package service exposes the lead pipeline operations to the HTTP layer.
// Every write takes the per-lead lock, loads the latest version and hands
// the lead to the pipeline coordinator.
package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/locking"
	"loan_pipeline_backend/internal/leads/pipeline"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/internal/leads/transport"
	"loan_pipeline_backend/platform/apperr"
	"loan_pipeline_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	msgLeadNotFound      = "lead not found"
	msgLeadLocked        = "lead is being updated by another request; retry shortly"
	msgContractsDisabled = "contract storage is not configured"
	msgInvalidLoanInput  = "invalid loan input"

	lockWait = 5 * time.Second

	maxInterestRate = 30
	maxTermMonths   = 480

	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository reads leads.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Lead, int, error)
}

// Locker serializes writes to a single lead across instances.
type Locker interface {
	Lock(ctx context.Context, leadID uuid.UUID) (func(), error)
}

// ConditionLister returns the conditions shown on the lead detail.
type ConditionLister interface {
	ListConditionSummaries(ctx context.Context, leadID uuid.UUID) ([]transport.ConditionSummary, error)
}

// ContractStore stores signed contract files.
type ContractStore interface {
	UploadContractFile(ctx context.Context, leadID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error)
}

// Service handles lead operations.
type Service struct {
	repo        Repository
	coordinator *pipeline.Coordinator
	locker      Locker
	conditions  ConditionLister
	contracts   ContractStore
}

// New creates a lead service. A nil locker disables cross-instance locking;
// the version check still rejects stale writes.
func New(repo Repository, coordinator *pipeline.Coordinator, locker Locker, conditions ConditionLister, contracts ContractStore) *Service {
	return &Service{
		repo:        repo,
		coordinator: coordinator,
		locker:      locker,
		conditions:  conditions,
		contracts:   contracts,
	}
}

// List returns one page of leads filtered by stage, section and a search
// over borrower name, phone and email.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	params := repository.ListParams{
		Search: strings.TrimSpace(req.Search),
		Offset: (req.Page - 1) * req.PageSize,
		Limit:  req.PageSize,
	}
	if req.Stage != "" {
		stage := req.Stage
		params.Stage = &stage
	}
	if section := strings.TrimSpace(req.Section); section != "" {
		params.Section = &section
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, apperr.Persistence(err)
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = toLeadResponse(lead)
	}

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: (total + req.PageSize - 1) / req.PageSize,
	}, nil
}

// Create stores a new lead at the first stage.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	lead := domain.Lead{
		FirstName:           strings.TrimSpace(req.FirstName),
		LastName:            strings.TrimSpace(req.LastName),
		Phone:               phone.NormalizeE164(req.Phone),
		LoanAmount:          req.LoanAmount,
		SalesPrice:          req.SalesPrice,
		InterestRate:        req.InterestRate,
		TermMonths:          req.TermMonths,
		PropertyType:        strings.TrimSpace(req.PropertyType),
		Occupancy:           strings.TrimSpace(req.Occupancy),
		LoanType:            strings.TrimSpace(req.LoanType),
		PropertyTaxes:       req.PropertyTaxes,
		HomeownersInsurance: req.HomeownersInsurance,
		HOADues:             req.HOADues,
		MortgageInsurance:   req.MortgageInsurance,
		MonthlyLiabilities:  req.MonthlyLiabilities,
		TotalMonthlyIncome:  req.TotalMonthlyIncome,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		lead.Email = &email
	}
	if source := strings.TrimSpace(req.ReferralSource); source != "" {
		lead.ReferralSource = &source
	}

	created, err := s.coordinator.CreateLead(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(created), nil
}

// GetByID returns the lead with its conditions, loaded concurrently.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadDetailResponse, error) {
	var (
		lead       domain.Lead
		conditions []transport.ConditionSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lead, err = s.load(gctx, id)
		return err
	})
	if s.conditions != nil {
		g.Go(func() error {
			var err error
			conditions, err = s.conditions.ListConditionSummaries(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	if conditions == nil {
		conditions = []transport.ConditionSummary{}
	}
	return transport.LeadDetailResponse{Lead: toLeadResponse(lead), Conditions: conditions}, nil
}

// UpdateLoan edits loan inputs and refreshes the figures they drive.
func (s *Service) UpdateLoan(ctx context.Context, id uuid.UUID, req transport.UpdateLoanRequest) (transport.LeadResponse, error) {
	pending, err := loanMutation(req)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	var updated domain.Lead
	err = s.withLead(ctx, id, func(lead domain.Lead) error {
		var err error
		updated, err = s.coordinator.RecalculateFinancials(ctx, lead, pending)
		return err
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(updated), nil
}

// SeedFinancials computes PITI once for a lead that has a loan amount.
func (s *Service) SeedFinancials(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	var updated domain.Lead
	err := s.withLead(ctx, id, func(lead domain.Lead) error {
		var err error
		updated, err = s.coordinator.SeedFinancials(ctx, lead)
		return err
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(updated), nil
}

// ValidateStage reports whether the lead may move to the requested stage.
// It takes no lock and writes nothing.
func (s *Service) ValidateStage(ctx context.Context, id uuid.UUID, req transport.ValidateStageRequest) (transport.StageValidationResponse, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.StageValidationResponse{}, err
	}
	verdict, err := s.coordinator.ValidateStageTransition(lead, req.Stage, toCorrections(req.Corrections))
	if err != nil {
		return transport.StageValidationResponse{}, err
	}
	return toValidationResponse(verdict), nil
}

// ChangeStage validates and applies a stage transition.
func (s *Service) ChangeStage(ctx context.Context, id, actorID uuid.UUID, req transport.StageRequest) (transport.StageTransitionResponse, error) {
	var outcome pipeline.StageOutcome
	err := s.withLead(ctx, id, func(lead domain.Lead) error {
		var err error
		outcome, err = s.coordinator.ApplyStageTransition(ctx, lead, pipeline.StageRequest{
			Target:              req.Stage,
			Bypass:              req.Bypass,
			Corrections:         toCorrections(req.Corrections),
			SuppressAutoRestart: req.SuppressAutoRestart,
			ActorID:             actorID,
		})
		return err
	})
	if err != nil {
		return transport.StageTransitionResponse{}, err
	}
	return toTransitionResponse(outcome), nil
}

// ChangeActiveStatus updates the sub-status of an active loan.
func (s *Service) ChangeActiveStatus(ctx context.Context, id uuid.UUID, req transport.ActiveStatusRequest) (transport.LeadResponse, error) {
	return s.mutate(ctx, id, func(lead domain.Lead) (domain.Lead, error) {
		return s.coordinator.ChangeActiveStatus(ctx, lead, req.Status)
	})
}

// Close moves an active loan to the Closed section.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	return s.mutate(ctx, id, func(lead domain.Lead) (domain.Lead, error) {
		return s.coordinator.CloseActive(ctx, lead)
	})
}

// ChangePastClientStatus updates a past client's status, creating the
// referral lead for "New Lead".
func (s *Service) ChangePastClientStatus(ctx context.Context, id uuid.UUID, req transport.PastClientStatusRequest) (transport.PastClientStatusResponse, error) {
	var outcome pipeline.PastClientOutcome
	err := s.withLead(ctx, id, func(lead domain.Lead) error {
		var err error
		outcome, err = s.coordinator.ChangePastClientStatus(ctx, lead, req.Status)
		return err
	})
	if err != nil {
		return transport.PastClientStatusResponse{}, err
	}

	resp := transport.PastClientStatusResponse{Lead: toLeadResponse(outcome.Lead)}
	if outcome.Referral != nil {
		referral := toLeadResponse(*outcome.Referral)
		resp.Referral = &referral
	}
	return resp, nil
}

// UploadContractFile stores the signed contract and attaches it to the lead.
func (s *Service) UploadContractFile(ctx context.Context, id uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (transport.LeadResponse, error) {
	if s.contracts == nil {
		return transport.LeadResponse{}, apperr.Internal(msgContractsDisabled)
	}
	if _, err := s.load(ctx, id); err != nil {
		return transport.LeadResponse{}, err
	}

	fileKey, err := s.contracts.UploadContractFile(ctx, id, fileName, contentType, reader, size)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return s.mutate(ctx, id, func(lead domain.Lead) (domain.Lead, error) {
		return s.coordinator.AttachContractFile(ctx, lead, fileKey)
	})
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(domain.Lead) (domain.Lead, error)) (transport.LeadResponse, error) {
	var updated domain.Lead
	err := s.withLead(ctx, id, func(lead domain.Lead) error {
		var err error
		updated, err = fn(lead)
		return err
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(updated), nil
}

// withLead runs fn on the latest version of the lead while holding its lock.
func (s *Service) withLead(ctx context.Context, id uuid.UUID, fn func(domain.Lead) error) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	lead, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return fn(lead)
}

func (s *Service) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, id)
	if err != nil {
		if errors.Is(err, locking.ErrLockTimeout) {
			return nil, apperr.Conflict(msgLeadLocked)
		}
		return nil, err
	}
	return unlock, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, apperr.NotFound(msgLeadNotFound)
		}
		return domain.Lead{}, apperr.Persistence(err)
	}
	return lead, nil
}

// loanMutation converts the edit into writes. Amount, price, rate and term
// must be positive when present; null clears them.
func loanMutation(req transport.UpdateLoanRequest) (domain.Mutation, error) {
	var m domain.Mutation
	invalid := map[string]string{}

	setOptionalFloat(&m, invalid, domain.FieldLoanAmount, req.LoanAmount, 0)
	setOptionalFloat(&m, invalid, domain.FieldSalesPrice, req.SalesPrice, 0)
	setOptionalFloat(&m, invalid, domain.FieldInterestRate, req.InterestRate, maxInterestRate)

	if req.TermMonths.Set {
		switch {
		case req.TermMonths.Value == nil:
			m.Clear(domain.FieldTermMonths)
		case *req.TermMonths.Value <= 0 || *req.TermMonths.Value > maxTermMonths:
			invalid[string(domain.FieldTermMonths)] = "range"
		default:
			m.Set(domain.FieldTermMonths, *req.TermMonths.Value)
		}
	}

	if req.PropertyType != nil {
		m.Set(domain.FieldPropertyType, strings.TrimSpace(*req.PropertyType))
	}
	if req.Occupancy != nil {
		m.Set(domain.FieldOccupancy, strings.TrimSpace(*req.Occupancy))
	}
	if req.LoanType != nil {
		m.Set(domain.FieldLoanType, strings.TrimSpace(*req.LoanType))
	}
	if req.MonthlyLiabilities != nil {
		m.Set(domain.FieldMonthlyLiabilities, *req.MonthlyLiabilities)
	}
	if req.TotalMonthlyIncome != nil {
		m.Set(domain.FieldTotalMonthlyIncome, *req.TotalMonthlyIncome)
	}

	if len(invalid) > 0 {
		return domain.Mutation{}, apperr.Validation(msgInvalidLoanInput).WithDetails(invalid)
	}
	return m, nil
}

func setOptionalFloat(m *domain.Mutation, invalid map[string]string, field domain.Field, value transport.OptionalFloat, limit float64) {
	if !value.Set {
		return
	}
	if value.Value == nil {
		m.Clear(field)
		return
	}
	if *value.Value <= 0 || (limit > 0 && *value.Value > limit) {
		invalid[string(field)] = "range"
		return
	}
	m.Set(field, *value.Value)
}

func toCorrections(raw map[string]string) domain.Corrections {
	if len(raw) == 0 {
		return nil
	}
	out := make(domain.Corrections, len(raw))
	for field, value := range raw {
		out[domain.Field(field)] = value
	}
	return out
}
