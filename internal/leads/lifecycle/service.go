package lifecycle

import (
	"context"
	"errors"

	"salesops_backend/internal/events"
	hierarchydomain "salesops_backend/internal/hierarchy/domain"
	hierarchyrepo "salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/leads/domain"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opLogCall = "leads.lifecycle.service.log_call"
	opMyLeads = "leads.lifecycle.service.my_leads"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ApplyCallLog(ctx context.Context, p repository.CallLogParams) (repository.Lead, error)
	ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]repository.Lead, error)
}

type Hierarchy interface {
	GetUser(ctx context.Context, id uuid.UUID) (hierarchyrepo.User, error)
}

type Service struct {
	repo      Repository
	hierarchy Hierarchy
	bus       events.Bus
	log       *logger.Logger
}

func NewService(repo Repository, hierarchy Hierarchy, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, hierarchy: hierarchy, bus: bus, log: log}
}

// CallLog is one recorded call attempt.
type CallLog struct {
	LeadID          uuid.UUID
	Outcome         domain.Outcome
	Notes           string
	DurationSeconds int
}

// LogCall records one call attempt against a lead and advances its lifecycle.
// Only the lead's current owner (or an Admin) may log a call. The update is
// guarded by an optimistic version check; a lost race is retried once with
// fresh state before surfacing as a conflict, since the operation is a pure
// increment over whatever state it re-reads.
func (s *Service) LogCall(ctx context.Context, actorID uuid.UUID, call CallLog) (repository.Lead, error) {
	if !domain.ValidOutcome(call.Outcome) {
		return repository.Lead{}, apperr.Validation("unknown call outcome").WithOp(opLogCall)
	}
	actor, err := s.hierarchy.GetUser(ctx, actorID)
	if err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.attempt(ctx, actor, call)
	if errors.Is(err, repository.ErrVersionConflict) {
		lead, err = s.attempt(ctx, actor, call)
		if errors.Is(err, repository.ErrVersionConflict) {
			return repository.Lead{}, apperr.Conflict("lead was modified concurrently, please retry").WithOp(opLogCall)
		}
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if lead.Status == domain.StatusArchived {
		reason := ""
		if lead.ArchiveReason != nil {
			reason = string(*lead.ArchiveReason)
		}
		s.log.Info("lead archived", "leadId", lead.ID, "reason", reason, "touchCount", lead.TouchCount)
		s.bus.Publish(ctx, events.LeadArchived{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			ActorID:   actorID,
			Reason:    reason,
		})
	}
	return lead, nil
}

func (s *Service) attempt(ctx context.Context, actor hierarchyrepo.User, call CallLog) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, call.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found").WithOp(opLogCall)
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err).WithOp(opLogCall)
	}

	if lead.Status == domain.StatusArchived {
		return repository.Lead{}, apperr.Conflict("lead is archived and no longer accepts call logs").WithOp(opLogCall)
	}
	if lead.Status == domain.StatusConverted {
		return repository.Lead{}, apperr.Conflict("lead is already converted and no longer accepts call logs").WithOp(opLogCall)
	}
	if lead.Status == domain.StatusNew {
		return repository.Lead{}, apperr.Conflict("lead has not been assigned yet").WithOp(opLogCall)
	}
	owner := lead.AssignedTo != nil && *lead.AssignedTo == actor.ID
	if !owner && actor.Role != hierarchydomain.RoleAdmin {
		return repository.Lead{}, apperr.Forbidden("lead is not assigned to you").WithOp(opLogCall)
	}

	disposition, err := domain.Dispose(call.Outcome, lead.TouchCount+1)
	if err != nil {
		return repository.Lead{}, apperr.Validation(err.Error()).WithOp(opLogCall)
	}
	var reason *domain.ArchiveReason
	if disposition.Archived() {
		r := disposition.Reason
		reason = &r
	}

	return s.repo.ApplyCallLog(ctx, repository.CallLogParams{
		LeadID:          call.LeadID,
		ExpectedVersion: lead.Version,
		ActorID:         actor.ID,
		Outcome:         call.Outcome,
		Notes:           call.Notes,
		DurationSeconds: call.DurationSeconds,
		NewStatus:       disposition.Status,
		ArchiveReason:   reason,
	})
}

// MyLeads returns the caller's active queue, oldest first.
func (s *Service) MyLeads(ctx context.Context, actorID uuid.UUID) ([]repository.Lead, error) {
	items, err := s.repo.ListAssignedTo(ctx, actorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err).WithOp(opMyLeads)
	}
	return items, nil
}
