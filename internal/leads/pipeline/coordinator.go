// Package pipeline coordinates lead mutations: validation, the stage
// transition engine and the financial recompute are merged into a single
// versioned write, followed by events, task scheduling and the refresh
// signal.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/finance"
	"loan_pipeline_backend/platform/apperr"
	"loan_pipeline_backend/platform/clock"
	"loan_pipeline_backend/platform/logger"
	"loan_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

// Refresh reasons passed to the notification hook.
const (
	ReasonCreated          = "lead_created"
	ReasonStageChanged     = "stage_changed"
	ReasonLoanUpdated      = "loan_updated"
	ReasonFinancialsSeeded = "financials_seeded"
	ReasonActiveStatus     = "active_status_changed"
	ReasonClosed           = "active_closed"
	ReasonPastClientStatus = "past_client_status_changed"
	ReasonContractFile     = "contract_file_attached"
)

// LeadStore persists lead writes.
type LeadStore interface {
	Create(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	ApplyLeadMutation(ctx context.Context, id uuid.UUID, version int, m domain.Mutation) (domain.Lead, error)
	ApplyReferral(ctx context.Context, id uuid.UUID, version int, m domain.Mutation, referral domain.Lead) (domain.Lead, domain.Lead, error)
}

// NotificationHook receives the refresh signal after a successful write.
type NotificationHook interface {
	OnLeadChanged(ctx context.Context, leadID uuid.UUID, reason string)
}

// TaskScheduler enqueues the follow-up reminder for a pending application.
type TaskScheduler interface {
	ScheduleTaskDue(ctx context.Context, leadID uuid.UUID, dueAt time.Time) error
}

// Options configure the coordinator's rules and defaults.
type Options struct {
	Rules    *domain.RuleSet
	Policy   finance.Policy
	Location *time.Location
}

// Coordinator applies lead mutations atomically.
type Coordinator struct {
	store    LeadStore
	engine   *domain.Engine
	rules    *domain.RuleSet
	policy   finance.Policy
	clock    clock.Clock
	hook     NotificationHook
	tasks    TaskScheduler
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a coordinator. A nil hook, task scheduler or event bus disables
// that side effect.
func New(store LeadStore, opts Options, clk clock.Clock, hook NotificationHook, tasks TaskScheduler, eventBus events.Bus, log *logger.Logger) *Coordinator {
	if opts.Rules == nil {
		opts.Rules = domain.DefaultRules()
	}
	if opts.Policy.DefaultInterestRate <= 0 || opts.Policy.DefaultTermMonths <= 0 {
		opts.Policy = finance.DefaultPolicy()
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Coordinator{
		store:    store,
		engine:   domain.NewEngine(opts.Location),
		rules:    opts.Rules,
		policy:   opts.Policy,
		clock:    clk,
		hook:     hook,
		tasks:    tasks,
		eventBus: eventBus,
		log:      log,
	}
}

// StageRequest asks for a lead to move to Target.
type StageRequest struct {
	Target              string
	Bypass              bool
	Corrections         domain.Corrections
	SuppressAutoRestart bool
	ActorID             uuid.UUID
}

// StageOutcome is the result of an applied stage transition.
type StageOutcome struct {
	Lead       domain.Lead
	Transition domain.Transition
	// Changed is false when the lead already sat in the target stage.
	Changed bool
}

// ValidateStageTransition checks lead against the rule guarding target with
// corrections merged in. It never writes.
func (c *Coordinator) ValidateStageTransition(lead domain.Lead, target string, corrections domain.Corrections) (domain.Verdict, error) {
	stage, err := resolveStage(target)
	if err != nil {
		return domain.Verdict{}, err
	}
	pending, err := correctionsMutation(corrections)
	if err != nil {
		return domain.Verdict{}, err
	}
	return domain.Validate(lead.Apply(pending), stage.Key, c.rules), nil
}

// ApplyStageTransition validates and applies a move of lead to req.Target.
// A refused transition returns a deficiency error and writes nothing,
// corrections included.
func (c *Coordinator) ApplyStageTransition(ctx context.Context, lead domain.Lead, req StageRequest) (StageOutcome, error) {
	stage, err := resolveStage(req.Target)
	if err != nil {
		return StageOutcome{}, err
	}
	corrections, err := correctionsMutation(req.Corrections)
	if err != nil {
		return StageOutcome{}, err
	}

	if lead.Stage == string(stage.Key) && corrections.IsEmpty() {
		return StageOutcome{Lead: lead}, nil
	}

	projected := lead.Apply(corrections)
	verdict := domain.Validate(projected, stage.Key, c.rules)
	if !verdict.Approved {
		metrics.StageDeficiencies.WithLabelValues(string(stage.Key)).Inc()
		return StageOutcome{}, deficiencyError(verdict)
	}
	if req.Bypass && !verdict.BypassEligible {
		return StageOutcome{}, apperr.Validation(msgBypassIneligible)
	}

	var m domain.Mutation
	m.Merge(corrections)
	var transition domain.Transition
	if lead.Stage != string(stage.Key) {
		now := c.clock.Now()
		transition = c.engine.ComputeTransition(projected, stage, now, domain.TransitionOptions{
			IsBypass:            req.Bypass || verdict.Bypassed(),
			SuppressAutoRestart: req.SuppressAutoRestart,
		})
		m.Merge(transition.Mutation)
		for _, warning := range transition.Warnings {
			if warning.Code == domain.WarningUnknownStageKey {
				c.log.WithContext(ctx).UnknownStage(lead.ID.String(), lead.Stage)
			}
		}
	}
	m.Merge(domain.RecalculateFinancials(lead, m, c.policy))

	updated, err := c.write(ctx, lead, m)
	if err != nil {
		return StageOutcome{}, err
	}

	outcome := StageOutcome{Lead: updated, Transition: transition, Changed: lead.Stage != updated.Stage}
	if outcome.Changed {
		c.afterStageChange(ctx, lead, updated, transition, req.ActorID)
		c.notify(ctx, updated.ID, ReasonStageChanged)
	} else {
		c.notify(ctx, updated.ID, ReasonLoanUpdated)
	}
	return outcome, nil
}

// RecalculateFinancials writes pending together with the derived figures it
// implies: the one-time seed, or the partial refresh of P&I, PITI and DTI.
func (c *Coordinator) RecalculateFinancials(ctx context.Context, lead domain.Lead, pending domain.Mutation) (domain.Lead, error) {
	if pending.IsEmpty() {
		return lead, nil
	}
	var m domain.Mutation
	m.Merge(pending)
	m.Merge(domain.RecalculateFinancials(lead, pending, c.policy))

	updated, err := c.write(ctx, lead, m)
	if err != nil {
		return domain.Lead{}, err
	}
	c.notify(ctx, updated.ID, ReasonLoanUpdated)
	return updated, nil
}

// SeedFinancials computes the full PITI once for a lead with a loan amount.
// A lead that is already seeded or has no loan amount is returned unchanged.
func (c *Coordinator) SeedFinancials(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	m := domain.SeedFinancials(lead, c.policy)
	if m.IsEmpty() {
		return lead, nil
	}
	updated, err := c.write(ctx, lead, m)
	if err != nil {
		return domain.Lead{}, err
	}
	c.notify(ctx, updated.ID, ReasonFinancialsSeeded)
	return updated, nil
}

// CreateLead stores a new lead, seeding PITI when a loan amount is present.
func (c *Coordinator) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	now := c.clock.Now()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Stage == "" {
		lead.Stage = string(domain.StageLeads)
	}
	lead.Version = 1
	lead.CreatedAt = now
	lead.UpdatedAt = now
	lead = lead.Apply(domain.SeedFinancials(lead, c.policy))

	created, err := c.store.Create(ctx, lead)
	if err != nil {
		return domain.Lead{}, c.persistFailed(ctx, lead.ID, err)
	}
	c.notify(ctx, created.ID, ReasonCreated)
	return created, nil
}

// ChangeActiveStatus updates the sub-status of an active loan and its
// section.
func (c *Coordinator) ChangeActiveStatus(ctx context.Context, lead domain.Lead, input string) (domain.Lead, error) {
	m, err := domain.ChangeSubStatus(lead, input)
	if err != nil {
		return domain.Lead{}, mapDomainError(err)
	}
	return c.writeAndNotify(ctx, lead, m, ReasonActiveStatus)
}

// CloseActive moves an active loan to the Closed section.
func (c *Coordinator) CloseActive(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	m, err := domain.CloseActive(lead)
	if err != nil {
		return domain.Lead{}, mapDomainError(err)
	}
	return c.writeAndNotify(ctx, lead, m, ReasonClosed)
}

// PastClientOutcome is the result of a past-client status change.
type PastClientOutcome struct {
	Lead     domain.Lead
	Referral *domain.Lead
}

// ChangePastClientStatus updates a past client's display status. "New Lead"
// also creates the referral lead in the same transaction.
func (c *Coordinator) ChangePastClientStatus(ctx context.Context, lead domain.Lead, input string) (PastClientOutcome, error) {
	now := c.clock.Now()
	update, err := domain.ChangePastClientStatus(lead, input, uuid.New(), now)
	if err != nil {
		return PastClientOutcome{}, mapDomainError(err)
	}

	if update.Referral == nil {
		updated, err := c.writeAndNotify(ctx, lead, update.Mutation, ReasonPastClientStatus)
		if err != nil {
			return PastClientOutcome{}, err
		}
		return PastClientOutcome{Lead: updated}, nil
	}

	updated, referral, err := c.store.ApplyReferral(ctx, lead.ID, lead.Version, update.Mutation, *update.Referral)
	if err != nil {
		return PastClientOutcome{}, c.persistFailed(ctx, lead.ID, err)
	}

	if c.eventBus != nil {
		c.eventBus.Publish(ctx, events.PastClientReferred{
			BaseEvent:      events.NewBaseEventAt(now),
			SourceLeadID:   updated.ID,
			ReferralLeadID: referral.ID,
		})
	}
	c.notify(ctx, updated.ID, ReasonPastClientStatus)
	c.notify(ctx, referral.ID, ReasonCreated)
	return PastClientOutcome{Lead: updated, Referral: &referral}, nil
}

// AttachContractFile records the stored contract file key on the lead.
func (c *Coordinator) AttachContractFile(ctx context.Context, lead domain.Lead, fileKey string) (domain.Lead, error) {
	var m domain.Mutation
	m.Set(domain.FieldContractFile, fileKey)
	return c.writeAndNotify(ctx, lead, m, ReasonContractFile)
}

func (c *Coordinator) writeAndNotify(ctx context.Context, lead domain.Lead, m domain.Mutation, reason string) (domain.Lead, error) {
	if m.IsEmpty() {
		return lead, nil
	}
	updated, err := c.write(ctx, lead, m)
	if err != nil {
		return domain.Lead{}, err
	}
	c.notify(ctx, updated.ID, reason)
	return updated, nil
}

func (c *Coordinator) write(ctx context.Context, lead domain.Lead, m domain.Mutation) (domain.Lead, error) {
	updated, err := c.store.ApplyLeadMutation(ctx, lead.ID, lead.Version, m)
	if err != nil {
		return domain.Lead{}, c.persistFailed(ctx, lead.ID, err)
	}
	return updated, nil
}

func (c *Coordinator) afterStageChange(ctx context.Context, before, after domain.Lead, t domain.Transition, actorID uuid.UUID) {
	metrics.StageTransitions.WithLabelValues(before.Stage, after.Stage, strconv.FormatBool(t.Bypassed)).Inc()

	var dueAt *time.Time
	if t.Mutation.Touches(domain.FieldTaskDueAt) {
		dueAt = after.TaskDueAt
	}

	if c.eventBus != nil {
		backfilled := make([]string, 0, len(t.Backfilled))
		for _, field := range t.Backfilled {
			backfilled = append(backfilled, string(field))
		}
		c.eventBus.Publish(ctx, events.LeadStageChanged{
			BaseEvent:  events.NewBaseEventAt(after.UpdatedAt),
			LeadID:     after.ID,
			ActorID:    actorID,
			FromStage:  before.Stage,
			ToStage:    after.Stage,
			Bypassed:   t.Bypassed,
			Backfilled: backfilled,
			TaskDueAt:  dueAt,
		})
	}

	if dueAt != nil && c.tasks != nil {
		if err := c.tasks.ScheduleTaskDue(ctx, after.ID, *dueAt); err != nil {
			c.log.WithContext(ctx).Warn("failed to schedule task due reminder", "leadId", after.ID, "error", err)
		}
	}
}

func (c *Coordinator) persistFailed(ctx context.Context, leadID uuid.UUID, err error) error {
	mapped := mapStoreError(err)
	if apperr.Is(mapped, apperr.KindNotFound) || apperr.Is(mapped, apperr.KindConflict) {
		return mapped
	}
	outcome := "failed"
	if apperr.Is(mapped, apperr.KindUnknownOutcome) {
		outcome = "unknown"
	}
	metrics.PersistenceFailures.WithLabelValues("lead", outcome).Inc()
	c.log.WithContext(ctx).PersistenceFailure("lead", leadID.String(), err)
	return mapped
}

func (c *Coordinator) notify(ctx context.Context, leadID uuid.UUID, reason string) {
	if c.hook != nil {
		c.hook.OnLeadChanged(ctx, leadID, reason)
	}
}

func resolveStage(target string) (domain.Stage, error) {
	stage, ok := domain.LookupStage(target)
	if !ok {
		return domain.Stage{}, apperr.BadRequest(msgUnknownStage).WithDetails(map[string]string{"stage": target})
	}
	return stage, nil
}

func correctionsMutation(corrections domain.Corrections) (domain.Mutation, error) {
	if len(corrections) == 0 {
		return domain.Mutation{}, nil
	}
	m, err := corrections.Mutation()
	if err != nil {
		return domain.Mutation{}, apperr.Validation(err.Error())
	}
	return m, nil
}
