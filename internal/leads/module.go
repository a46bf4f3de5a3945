// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	"loan_pipeline_backend/internal/events"
	apphttp "loan_pipeline_backend/internal/http"
	"loan_pipeline_backend/internal/leads/handler"
	"loan_pipeline_backend/internal/leads/pipeline"
	"loan_pipeline_backend/internal/leads/repository"
	"loan_pipeline_backend/internal/leads/service"
	"loan_pipeline_backend/internal/leads/transport"
	"loan_pipeline_backend/platform/clock"
	"loan_pipeline_backend/platform/logger"
	"loan_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies are the collaborators of the leads module. Optional ports
// left nil disable their side effect.
type Dependencies struct {
	Pool        *pgxpool.Pool
	Options     pipeline.Options
	Locker      service.Locker
	Conditions  service.ConditionLister
	Contracts   service.ContractStore
	Hook        pipeline.NotificationHook
	Tasks       pipeline.TaskScheduler
	EventBus    events.Bus
	Validator   *validator.Validator
	MaxFileSize int64
	Logger      *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with its dependencies.
func NewModule(deps Dependencies) (*Module, error) {
	if err := transport.RegisterValidations(deps.Validator); err != nil {
		return nil, err
	}

	repo := repository.New(deps.Pool)
	coordinator := pipeline.New(repo, deps.Options, clock.System{}, deps.Hook, deps.Tasks, deps.EventBus, deps.Logger)
	svc := service.New(repo, coordinator, deps.Locker, deps.Conditions, deps.Contracts)

	return &Module{
		handler: handler.New(svc, deps.Validator, deps.MaxFileSize),
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead repository, read by the scheduler worker.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
