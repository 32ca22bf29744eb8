package exports

import (
	hierarchydomain "salesops_backend/internal/hierarchy/domain"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/httpkit"
)

// Module is the exports module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the exports module.
func NewModule(archive Archive) *Module {
	return &Module{handler: NewHandler(NewService(archive))}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes. Downloads are limited to roles that
// manage other people's leads; the service additionally scopes rows to the
// caller's downline.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/exports")
	group.Use(httpkit.RequireRole(
		string(hierarchydomain.RoleAdmin),
		string(hierarchydomain.RoleBranchManager),
		string(hierarchydomain.RoleTeamLead),
	))
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
