// Package notification provides in-app notifications for engine events.
package notification

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/notification/handler"
	"salesops_backend/internal/notification/inapp"
	"salesops_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *inapp.Service
}

// NewModule creates and initializes the notification module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)
	svc := inapp.NewService(repo, log)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Service exposes the in-app notification service to the worker.
func (m *Module) Service() *inapp.Service {
	return m.service
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
