package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/finance"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/platform/apperr"
	"loan_pipeline_backend/platform/clock"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

type fakeStore struct {
	lead      domain.Lead
	writes    []domain.Mutation
	referrals []domain.Lead
	err       error
}

func (s *fakeStore) Create(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	if s.err != nil {
		return domain.Lead{}, s.err
	}
	s.lead = lead
	return lead, nil
}

func (s *fakeStore) ApplyLeadMutation(_ context.Context, id uuid.UUID, version int, m domain.Mutation) (domain.Lead, error) {
	if s.err != nil {
		return domain.Lead{}, s.err
	}
	if version != s.lead.Version {
		return domain.Lead{}, repository.ErrVersionConflict
	}
	s.writes = append(s.writes, m)
	s.lead = s.lead.Apply(m)
	s.lead.Version++
	s.lead.UpdatedAt = testNow
	return s.lead, nil
}

func (s *fakeStore) ApplyReferral(ctx context.Context, id uuid.UUID, version int, m domain.Mutation, referral domain.Lead) (domain.Lead, domain.Lead, error) {
	updated, err := s.ApplyLeadMutation(ctx, id, version, m)
	if err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}
	s.referrals = append(s.referrals, referral)
	return updated, referral, nil
}

type fakeHook struct {
	reasons []string
}

func (h *fakeHook) OnLeadChanged(_ context.Context, _ uuid.UUID, reason string) {
	h.reasons = append(h.reasons, reason)
}

type fakeTasks struct {
	scheduled []time.Time
}

func (f *fakeTasks) ScheduleTaskDue(_ context.Context, _ uuid.UUID, dueAt time.Time) error {
	f.scheduled = append(f.scheduled, dueAt)
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

type harness struct {
	store *fakeStore
	hook  *fakeHook
	tasks *fakeTasks
	bus   *recordingBus
	coord *Coordinator
}

func newHarness(lead domain.Lead) *harness {
	h := &harness{
		store: &fakeStore{lead: lead},
		hook:  &fakeHook{},
		tasks: &fakeTasks{},
		bus:   &recordingBus{},
	}
	h.coord = New(h.store, Options{Policy: finance.DefaultPolicy(), Location: time.UTC}, clock.Fixed(testNow), h.hook, h.tasks, h.bus, nil)
	return h
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int           { return &n }

func baseLead(stage domain.StageKey) domain.Lead {
	return domain.Lead{ID: uuid.New(), Version: 3, Stage: string(stage), FirstName: "Dana", LastName: "Reyes"}
}

func TestApplyStageTransitionRefusesDeficientLead(t *testing.T) {
	h := newHarness(baseLead(domain.StageLeads))

	_, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "pending-app"})
	if !IsDeficiency(err) {
		t.Fatalf("expected deficiency, got %v", err)
	}
	if apperr.GetKind(err) != apperr.KindUnprocessable {
		t.Fatalf("expected unprocessable kind, got %v", apperr.GetKind(err))
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected apperr.Error")
	}
	details, ok := appErr.Details.(Deficiency)
	if !ok {
		t.Fatalf("expected Deficiency details, got %T", appErr.Details)
	}
	if len(details.MissingFields) != 2 || details.MissingFields[0] != "leadStrength" || details.MissingFields[1] != "likelyToApply" {
		t.Fatalf("expected leadStrength and likelyToApply missing, got %v", details.MissingFields)
	}
	if len(h.store.writes) != 0 {
		t.Fatalf("expected no writes, got %d", len(h.store.writes))
	}
	if len(h.hook.reasons) != 0 || len(h.bus.published) != 0 {
		t.Fatalf("expected no side effects on a deficiency")
	}
}

func TestApplyStageTransitionMergesCorrectionsIntoSingleWrite(t *testing.T) {
	h := newHarness(baseLead(domain.StageLeads))

	outcome, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{
		Target:      "pending-app",
		Corrections: domain.Corrections{domain.FieldLeadStrength: "hot", domain.FieldLikelyToApply: "Medium"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(h.store.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(h.store.writes))
	}
	lead := outcome.Lead
	if lead.Stage != "pending-app" || *lead.LeadStrength != "Hot" || *lead.LikelyToApply != "Medium" {
		t.Fatalf("expected stage and corrections applied together, got %+v", lead)
	}
	if lead.StatusLabel == nil || *lead.StatusLabel != domain.DefaultPendingAppLabel {
		t.Fatalf("expected default status label, got %v", lead.StatusLabel)
	}
	if len(h.tasks.scheduled) != 1 || !h.tasks.scheduled[0].Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected task due today scheduled, got %v", h.tasks.scheduled)
	}
	if len(h.bus.published) != 1 {
		t.Fatalf("expected one stage event, got %d", len(h.bus.published))
	}
	if _, ok := h.bus.published[0].(events.LeadStageChanged); !ok {
		t.Fatalf("expected LeadStageChanged, got %T", h.bus.published[0])
	}
	if len(h.hook.reasons) != 1 || h.hook.reasons[0] != ReasonStageChanged {
		t.Fatalf("expected one refresh signal, got %v", h.hook.reasons)
	}
}

func TestApplyStageTransitionRejectsUnsupportedCorrection(t *testing.T) {
	h := newHarness(baseLead(domain.StageLeads))

	_, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{
		Target:      "pending-app",
		Corrections: domain.Corrections{domain.FieldLoanAmount: "100000"},
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyStageTransitionUnknownTargetIsBadRequest(t *testing.T) {
	h := newHarness(baseLead(domain.StageLeads))

	_, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "underwriting"})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestApplyStageTransitionRefinanceBypassesContract(t *testing.T) {
	lead := baseLead(domain.StagePreApproved)
	lead.LoanType = "Refinance"
	h := newHarness(lead)

	outcome, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "active", Bypass: true})
	if err != nil {
		t.Fatalf("expected bypass to succeed, got %v", err)
	}
	if !outcome.Transition.Bypassed {
		t.Fatalf("expected transition to be marked bypassed")
	}
	if outcome.Lead.ActiveSubStatus == nil || *outcome.Lead.ActiveSubStatus != "NEW" {
		t.Fatalf("expected sub-status NEW, got %v", outcome.Lead.ActiveSubStatus)
	}
	if outcome.Lead.Section == nil || *outcome.Lead.Section != "Incoming" {
		t.Fatalf("expected section Incoming, got %v", outcome.Lead.Section)
	}
}

func TestApplyStageTransitionBypassRequiresEligibility(t *testing.T) {
	lead := baseLead(domain.StagePreApproved)
	lead.LoanType = "Purchase"
	lead.ContractFileKey = strPtr("contracts/1.pdf")
	h := newHarness(lead)

	_, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "active", Bypass: true})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for ineligible bypass, got %v", err)
	}
	if len(h.store.writes) != 0 {
		t.Fatalf("expected no writes")
	}
}

func TestApplyStageTransitionSameStageIsNoop(t *testing.T) {
	h := newHarness(baseLead(domain.StageScreening))

	outcome, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "screening"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.Changed || len(h.store.writes) != 0 || len(h.hook.reasons) != 0 {
		t.Fatalf("expected no-op, got changed=%v writes=%d", outcome.Changed, len(h.store.writes))
	}
}

func TestApplyStageTransitionFromLegacyStageWarns(t *testing.T) {
	h := newHarness(baseLead(domain.StageKey("Contacted")))

	outcome, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "leads"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(outcome.Transition.Warnings) != 1 || outcome.Transition.Warnings[0].Code != domain.WarningUnknownStageKey {
		t.Fatalf("expected unknown stage warning, got %v", outcome.Transition.Warnings)
	}
	if len(outcome.Transition.Backfilled) != 0 {
		t.Fatalf("expected no backfill from an unknown stage")
	}
}

func TestApplyStageTransitionVersionConflict(t *testing.T) {
	h := newHarness(baseLead(domain.StageLeads))
	stale := h.store.lead
	stale.Version = 1
	stale.LeadStrength = strPtr("Hot")
	stale.LikelyToApply = strPtr("High")

	_, err := h.coord.ApplyStageTransition(context.Background(), stale, StageRequest{Target: "pending-app"})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(h.bus.published) != 0 || len(h.tasks.scheduled) != 0 || len(h.hook.reasons) != 0 {
		t.Fatalf("expected no side effects after a failed write")
	}
}

func TestApplyStageTransitionTimeoutIsUnknownOutcome(t *testing.T) {
	lead := baseLead(domain.StageLeads)
	lead.LeadStrength = strPtr("Hot")
	lead.LikelyToApply = strPtr("High")
	h := newHarness(lead)
	h.store.err = context.DeadlineExceeded

	_, err := h.coord.ApplyStageTransition(context.Background(), h.store.lead, StageRequest{Target: "pending-app"})
	if apperr.GetKind(err) != apperr.KindUnknownOutcome {
		t.Fatalf("expected unknown outcome, got %v", err)
	}
	if len(h.hook.reasons) != 0 {
		t.Fatalf("expected no notification after a failed write")
	}
}

func TestValidateStageTransitionWritesNothing(t *testing.T) {
	h := newHarness(baseLead(domain.StageLeads))

	verdict, err := h.coord.ValidateStageTransition(h.store.lead, "pending-app", domain.Corrections{domain.FieldLeadStrength: "Warm"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if verdict.Approved || len(verdict.Missing) != 1 || verdict.Missing[0] != domain.FieldLikelyToApply {
		t.Fatalf("expected only likelyToApply missing, got %+v", verdict)
	}
	if len(h.store.writes) != 0 {
		t.Fatalf("expected validation to be read-only")
	}
}

func TestRecalculateFinancialsPartialRefreshInOneWrite(t *testing.T) {
	lead := baseLead(domain.StageScreening)
	lead.LoanAmount = floatPtr(300000)
	lead.InterestRate = floatPtr(7.0)
	lead.TermMonths = intPtr(360)
	lead.PropertyTaxes = floatPtr(400)
	lead.HomeownersInsurance = floatPtr(150)
	lead.HOADues = floatPtr(0)
	lead.MortgageInsurance = floatPtr(0)
	lead.PrincipalInterest = floatPtr(1995.91)
	lead.PITI = floatPtr(2545.91)
	lead.PITIComputed = true
	h := newHarness(lead)

	var pending domain.Mutation
	pending.Set(domain.FieldLoanAmount, 400000.0)
	pending.Set(domain.FieldInterestRate, 6.5)

	updated, err := h.coord.RecalculateFinancials(context.Background(), h.store.lead, pending)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(h.store.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(h.store.writes))
	}
	if *updated.PrincipalInterest != 2528.27 {
		t.Fatalf("expected P&I 2528.27, got %v", *updated.PrincipalInterest)
	}
	if *updated.PITI != 3078.27 {
		t.Fatalf("expected PITI 3078.27, got %v", *updated.PITI)
	}
	if *updated.PropertyTaxes != 400 {
		t.Fatalf("expected stored taxes reused, got %v", *updated.PropertyTaxes)
	}
}

func TestCreateLeadSeedsFinancials(t *testing.T) {
	h := newHarness(domain.Lead{})

	created, err := h.coord.CreateLead(context.Background(), domain.Lead{
		FirstName:    "Dana",
		LoanAmount:   floatPtr(300000),
		SalesPrice:   floatPtr(375000),
		PropertyType: "Single Family",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !created.PITIComputed {
		t.Fatalf("expected PITI to be seeded on create")
	}
	if created.InterestRate == nil || *created.InterestRate != 7.0 {
		t.Fatalf("expected seeded rate 7.0, got %v", created.InterestRate)
	}
	if created.TermMonths == nil || *created.TermMonths != 360 {
		t.Fatalf("expected seeded term 360, got %v", created.TermMonths)
	}
	if created.Stage != "leads" || created.Version != 1 {
		t.Fatalf("expected new lead at leads v1, got %s v%d", created.Stage, created.Version)
	}
}

func TestCreateLeadKeepsEnteredComponents(t *testing.T) {
	h := newHarness(domain.Lead{})

	created, err := h.coord.CreateLead(context.Background(), domain.Lead{
		FirstName:     "Dana",
		LoanAmount:    floatPtr(300000),
		SalesPrice:    floatPtr(400000),
		PropertyTaxes: floatPtr(999),
		PropertyType:  "Single Family",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !created.PITIComputed {
		t.Fatalf("expected PITI to be seeded on create")
	}
	if *created.PropertyTaxes != 999 {
		t.Fatalf("expected entered taxes 999 to be kept, got %v", *created.PropertyTaxes)
	}
	if *created.HomeownersInsurance != 300 {
		t.Fatalf("expected missing insurance seeded to 300, got %v", *created.HomeownersInsurance)
	}
	want := finance.Combine(*created.PrincipalInterest, 999, 300, 0, 0).PITI
	if *created.PITI != want {
		t.Fatalf("expected PITI %v from entered taxes, got %v", want, *created.PITI)
	}
}

func TestChangePastClientStatusNewLeadCreatesReferral(t *testing.T) {
	lead := baseLead(domain.StagePastClients)
	lead.Phone = "+15125550100"
	h := newHarness(lead)

	outcome, err := h.coord.ChangePastClientStatus(context.Background(), h.store.lead, "new lead")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.Referral == nil {
		t.Fatalf("expected a referral lead")
	}
	if outcome.Referral.Phone != lead.Phone || outcome.Referral.Stage != "leads" {
		t.Fatalf("expected referral cloned at leads, got %+v", outcome.Referral)
	}
	if *outcome.Lead.PastClientStatus != "New Lead" {
		t.Fatalf("expected status New Lead, got %s", *outcome.Lead.PastClientStatus)
	}
	if len(h.bus.published) != 1 {
		t.Fatalf("expected referral event, got %d", len(h.bus.published))
	}
}

func TestChangeActiveStatusRequiresActive(t *testing.T) {
	h := newHarness(baseLead(domain.StagePreApproved))

	_, err := h.coord.ChangeActiveStatus(context.Background(), h.store.lead, "CTC")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for a non-active lead, got %v", err)
	}
}
