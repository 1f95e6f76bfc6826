package quotes

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/quotes/handler"
	"fieldops_backend/internal/quotes/repository"
	"fieldops_backend/internal/quotes/service"
	requestsrepo "fieldops_backend/internal/requests/repository"
	"fieldops_backend/platform/events"
	"fieldops_backend/platform/validator"
)

// Module wires the quotes bounded context.
type Module struct {
	repo    *repository.Repository
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates the quotes module. The requests repository feeds the
// conversion cascade.
func NewModule(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, history *engine.HistoryRepository, requests *requestsrepo.Repository, bus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool, gate, derive, requests)
	svc := service.New(repo, history, bus)
	return &Module{
		repo:    repo,
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "quotes" }

// Repository exposes the repository for downstream cascade wiring and the
// refresh sweep.
func (m *Module) Repository() *repository.Repository { return m.repo }

// RegisterRoutes registers the module routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/quotes"))
}

var _ apphttp.Module = (*Module)(nil)
