// Package conditions provides the underwriting conditions bounded context module.
// This file defines the module that encapsulates conditions setup and route registration.
package conditions

import (
	"loan_pipeline_backend/internal/conditions/handler"
	"loan_pipeline_backend/internal/conditions/repository"
	"loan_pipeline_backend/internal/conditions/service"
	"loan_pipeline_backend/internal/conditions/transport"
	"loan_pipeline_backend/internal/events"
	apphttp "loan_pipeline_backend/internal/http"
	"loan_pipeline_backend/platform/clock"
	"loan_pipeline_backend/platform/logger"
	"loan_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conditions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the conditions module with its dependencies.
func NewModule(pool *pgxpool.Pool, documents service.DocumentStore, hook service.NotificationHook, eventBus events.Bus, val *validator.Validator, maxFileSize int64, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, documents, hook, eventBus, clock.System{}, log)

	return &Module{
		handler: handler.New(svc, val, maxFileSize),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conditions"
}

// Service returns the condition service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts conditions routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/conditions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
