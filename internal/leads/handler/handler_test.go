package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/finance"
	"loan_pipeline_backend/internal/leads/pipeline"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/internal/leads/service"
	"loan_pipeline_backend/internal/leads/transport"
	"loan_pipeline_backend/platform/clock"
	"loan_pipeline_backend/platform/httpkit"
	"loan_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type singleLeadStore struct {
	lead domain.Lead
}

func (s *singleLeadStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	if id != s.lead.ID {
		return domain.Lead{}, repository.ErrNotFound
	}
	return s.lead, nil
}

func (s *singleLeadStore) Create(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.lead = lead
	return lead, nil
}

func (s *singleLeadStore) ApplyLeadMutation(_ context.Context, id uuid.UUID, version int, m domain.Mutation) (domain.Lead, error) {
	if id != s.lead.ID {
		return domain.Lead{}, repository.ErrNotFound
	}
	if version != s.lead.Version {
		return domain.Lead{}, repository.ErrVersionConflict
	}
	s.lead = s.lead.Apply(m)
	s.lead.Version++
	return s.lead, nil
}

func (s *singleLeadStore) ApplyReferral(ctx context.Context, id uuid.UUID, version int, m domain.Mutation, referral domain.Lead) (domain.Lead, domain.Lead, error) {
	updated, err := s.ApplyLeadMutation(ctx, id, version, m)
	return updated, referral, err
}

func (s *singleLeadStore) List(_ context.Context, params repository.ListParams) ([]domain.Lead, int, error) {
	if s.lead.ID == uuid.Nil || (params.Stage != nil && s.lead.Stage != *params.Stage) {
		return []domain.Lead{}, 0, nil
	}
	return []domain.Lead{s.lead}, 1, nil
}

func newTestEngine(t *testing.T, lead domain.Lead) (*gin.Engine, *singleLeadStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	val := validator.New()
	if err := transport.RegisterValidations(val); err != nil {
		t.Fatalf("register validations: %v", err)
	}

	store := &singleLeadStore{lead: lead}
	clk := clock.Fixed(time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC))
	coord := pipeline.New(store, pipeline.Options{Policy: finance.DefaultPolicy()}, clk, nil, nil, nil, nil)
	h := New(service.New(store, coord, nil, nil, nil), val, 1024)

	engine := gin.New()
	group := engine.Group("/leads", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Next()
	})
	h.RegisterRoutes(group)
	return engine, store
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestChangeStageDeficiencyReturns422WithMissingFields(t *testing.T) {
	lead := domain.Lead{ID: uuid.New(), Version: 1, Stage: string(domain.StageLeads)}
	engine, store := newTestEngine(t, lead)

	rec := doJSON(engine, http.MethodPost, "/leads/"+lead.ID.String()+"/stage", map[string]any{"stage": "pending-app"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error   string              `json:"error"`
		Details pipeline.Deficiency `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Details.MissingFields) != 2 || resp.Details.Target != "pending-app" {
		t.Fatalf("expected two missing fields for pending-app, got %+v", resp.Details)
	}
	if store.lead.Version != 1 {
		t.Fatalf("expected no write, got version %d", store.lead.Version)
	}
}

func TestChangeStageRejectsUnknownStageKey(t *testing.T) {
	lead := domain.Lead{ID: uuid.New(), Version: 1, Stage: string(domain.StageLeads)}
	engine, _ := newTestEngine(t, lead)

	rec := doJSON(engine, http.MethodPost, "/leads/"+lead.ID.String()+"/stage", map[string]any{"stage": "underwriting"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp httpkit.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != msgValidationFailed {
		t.Fatalf("expected validation failure, got %q", resp.Error)
	}
}

func TestGetByIDUnknownLeadReturns404(t *testing.T) {
	engine, _ := newTestEngine(t, domain.Lead{ID: uuid.New(), Version: 1})

	rec := doJSON(engine, http.MethodGet, "/leads/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateReturns201(t *testing.T) {
	engine, store := newTestEngine(t, domain.Lead{})

	rec := doJSON(engine, http.MethodPost, "/leads", map[string]any{
		"firstName": "Dana",
		"lastName":  "Reyes",
		"phone":     "(415) 555-2671",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.lead.Stage != string(domain.StageLeads) {
		t.Fatalf("expected stored lead at leads, got %q", store.lead.Stage)
	}
}

func TestContractUploadRequiresFile(t *testing.T) {
	lead := domain.Lead{ID: uuid.New(), Version: 1, Stage: string(domain.StagePreApproved)}
	engine, _ := newTestEngine(t, lead)

	req := httptest.NewRequest(http.MethodPut, "/leads/"+lead.ID.String()+"/contract-file", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListFiltersByStageQuery(t *testing.T) {
	lead := domain.Lead{ID: uuid.New(), Version: 1, Stage: string(domain.StageScreening)}
	engine, _ := newTestEngine(t, lead)

	rec := doJSON(engine, http.MethodGet, "/leads?stage=screening", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp transport.LeadListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].ID != lead.ID {
		t.Fatalf("expected the screening lead, got %+v", resp)
	}

	rec = doJSON(engine, http.MethodGet, "/leads?stage=underwriting", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stage, got %d", rec.Code)
	}
}
