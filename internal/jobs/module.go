package jobs

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/jobs/handler"
	"fieldops_backend/internal/jobs/repository"
	"fieldops_backend/internal/jobs/service"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	quotesrepo "fieldops_backend/internal/quotes/repository"
	requestsrepo "fieldops_backend/internal/requests/repository"
	"fieldops_backend/platform/events"
	"fieldops_backend/platform/validator"
)

// Module wires the jobs bounded context.
type Module struct {
	repo    *repository.Repository
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates the jobs module. The quotes and requests repositories feed
// the conversion cascades.
func NewModule(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, history *engine.HistoryRepository, quotes *quotesrepo.Repository, requests *requestsrepo.Repository, bus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool, gate, derive, quotes, requests)
	svc := service.New(repo, history, bus)
	return &Module{
		repo:    repo,
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "jobs" }

// Repository exposes the repository for downstream cascade wiring.
func (m *Module) Repository() *repository.Repository { return m.repo }

// RegisterRoutes registers the module routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/jobs"))
}

var _ apphttp.Module = (*Module)(nil)
