// Package requests provides the service request (intake) domain module.
package requests

import (
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/requests/handler"
	"fieldops_backend/internal/requests/repository"
	"fieldops_backend/internal/requests/service"
	"fieldops_backend/platform/events"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the service requests domain module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
	service *service.Service
}

// NewModule creates a new requests module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, history *engine.HistoryRepository, bus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool, gate, derive)
	svc := service.New(repo, history, bus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		repo:    repo,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "requests"
}

// Repository returns the repository for cross-module wiring (cascade links
// and the time-based refresher).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/requests"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
