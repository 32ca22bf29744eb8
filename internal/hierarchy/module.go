// Package hierarchy provides the reporting-hierarchy bounded context module.
package hierarchy

import (
	"salesops_backend/internal/hierarchy/handler"
	"salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/hierarchy/service"
	apphttp "salesops_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the hierarchy bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the hierarchy module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "hierarchy"
}

// Service returns the hierarchy service for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts hierarchy routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/hierarchy")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
