// Package lifecycle exposes the operational surface of the lifecycle engine:
// the admin hook that runs a refresh sweep on demand.
package lifecycle

import (
	"time"

	"github.com/gin-gonic/gin"

	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/lifecycle/refresher"
	"fieldops_backend/platform/httpkit"
)

// Module wires the lifecycle admin endpoints.
type Module struct {
	refresher *refresher.Refresher
}

// NewModule creates the lifecycle module.
func NewModule(ref *refresher.Refresher) *Module {
	return &Module{refresher: ref}
}

// Name returns the module name.
func (m *Module) Name() string { return "lifecycle" }

// RegisterRoutes registers the admin refresh hook.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/lifecycle/refresh", m.refresh)
}

// refresh runs one sweep immediately and returns the change report. This is
// the same code path the scheduler worker executes on its daily task.
func (m *Module) refresh(c *gin.Context) {
	report, err := m.refresher.Run(c.Request.Context(), time.Now())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, report)
}

var _ apphttp.Module = (*Module)(nil)
