// Package leads provides the lead inventory and distribution bounded context.
package leads

import (
	"salesops_backend/internal/events"
	hierarchyservice "salesops_backend/internal/hierarchy/service"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/leads/audit"
	"salesops_backend/internal/leads/batches"
	"salesops_backend/internal/leads/distribution"
	"salesops_backend/internal/leads/handler"
	"salesops_backend/internal/leads/lifecycle"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repository *repository.Repository
	auditSvc   *audit.Service
}

// Deps carries the cross-context collaborators the leads module needs.
type Deps struct {
	Pool      *pgxpool.Pool
	Hierarchy *hierarchyservice.Service
	Bus       events.Bus
	Locker    distribution.Locker
	Scheduler distribution.ReminderScheduler
	Config    *config.Config
	Validator *validator.Validator
	Logger    *logger.Logger
}

// NewModule creates and initializes the leads module.
func NewModule(d Deps) *Module {
	repo := repository.New(d.Pool)

	locker := d.Locker
	if locker == nil {
		locker = distribution.NoopLocker{}
	}

	batchSvc := batches.NewService(repo, d.Hierarchy, d.Bus, d.Logger)
	distSvc := distribution.NewService(repo, d.Hierarchy, locker, d.Scheduler, d.Bus, d.Config, d.Config, d.Logger)
	lifeSvc := lifecycle.NewService(repo, d.Hierarchy, d.Bus, d.Logger)
	auditSvc := audit.NewService(repo, d.Hierarchy, d.Logger)

	val := d.Validator
	if val == nil {
		val = validator.New()
	}

	return &Module{
		handler:    handler.New(batchSvc, distSvc, lifeSvc, auditSvc, val),
		repository: repo,
		auditSvc:   auditSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the lead store for the worker process.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// AuditService exposes the audit surface for the exports module.
func (m *Module) AuditService() *audit.Service {
	return m.auditSvc
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
