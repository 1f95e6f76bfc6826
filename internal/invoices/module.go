package invoices

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/invoices/handler"
	"fieldops_backend/internal/invoices/repository"
	"fieldops_backend/internal/invoices/service"
	jobsrepo "fieldops_backend/internal/jobs/repository"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/events"
	"fieldops_backend/platform/validator"
)

// Module wires the invoices bounded context.
type Module struct {
	repo    *repository.Repository
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates the invoices module. The jobs repository feeds the
// invoiced cascade.
func NewModule(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, history *engine.HistoryRepository, jobs *jobsrepo.Repository, bus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool, gate, derive, jobs)
	svc := service.New(repo, history, bus)
	return &Module{
		repo:    repo,
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "invoices" }

// Repository exposes the repository for the refresh sweep.
func (m *Module) Repository() *repository.Repository { return m.repo }

// RegisterRoutes registers the module routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/invoices"))
}

var _ apphttp.Module = (*Module)(nil)
