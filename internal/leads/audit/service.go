package audit

import (
	"context"
	"errors"

	hierarchydomain "salesops_backend/internal/hierarchy/domain"
	hierarchyrepo "salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/leads/domain"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	opTimeline = "leads.audit.service.timeline"
	opArchived = "leads.audit.service.archived"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ListTrail(ctx context.Context, leadID uuid.UUID) ([]repository.TrailEntry, error)
	ListArchived(ctx context.Context, ownerIDs []uuid.UUID, filter repository.ArchivedFilter) ([]repository.Lead, error)
}

type Hierarchy interface {
	GetUser(ctx context.Context, id uuid.UUID) (hierarchyrepo.User, error)
	IsInDownline(ctx context.Context, actorID, targetID uuid.UUID) (bool, error)
	DownlineOf(ctx context.Context, actorID uuid.UUID) ([]hierarchyrepo.User, error)
}

type Service struct {
	repo      Repository
	hierarchy Hierarchy
	log       *logger.Logger
}

func NewService(repo Repository, hierarchy Hierarchy, log *logger.Logger) *Service {
	return &Service{repo: repo, hierarchy: hierarchy, log: log}
}

// Timeline is a lead's full reconstructed life: the creation event followed
// by every custody and history entry in the order they occurred.
type Timeline struct {
	Lead    repository.Lead
	Entries []repository.TrailEntry
}

// TimelineOf reconstructs a lead's timeline. Reading is idempotent; calling
// it twice yields identical output. Visibility follows custody scope: the
// current owner, anyone above the owner in the hierarchy, and Admins.
func (s *Service) TimelineOf(ctx context.Context, callerID, leadID uuid.UUID) (Timeline, error) {
	caller, err := s.hierarchy.GetUser(ctx, callerID)
	if err != nil {
		return Timeline{}, err
	}

	var (
		lead    repository.Lead
		entries []repository.TrailEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lead, err = s.repo.GetByID(gctx, leadID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.repo.ListTrail(gctx, leadID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Timeline{}, apperr.NotFound("lead not found").WithOp(opTimeline)
		}
		return Timeline{}, apperr.Wrap(apperr.KindInternal, "failed to load timeline", err).WithOp(opTimeline)
	}

	if err := s.authorizeView(ctx, caller, lead); err != nil {
		return Timeline{}, err
	}

	// The creation event is synthesized from the lead row rather than
	// stored, so the trail table carries only mutations.
	creation := repository.TrailEntry{
		LeadID:     lead.ID,
		Kind:       domain.TrailHistory,
		Action:     "Created",
		Detail:     "ingested from batch " + lead.BatchID.String(),
		OccurredAt: lead.CreatedAt,
	}
	all := make([]repository.TrailEntry, 0, len(entries)+1)
	all = append(all, creation)
	all = append(all, entries...)
	return Timeline{Lead: lead, Entries: all}, nil
}

// ArchivedLeads returns the archived leads visible to the caller: their own
// plus their downline's, narrowed by the optional filter.
func (s *Service) ArchivedLeads(ctx context.Context, callerID uuid.UUID, filter repository.ArchivedFilter) ([]repository.Lead, error) {
	if filter.Reason != "" {
		switch domain.ArchiveReason(filter.Reason) {
		case domain.ReasonOverLimit, domain.ReasonDND, domain.ReasonWrongNumber:
		default:
			return nil, apperr.Validation("unknown archive reason filter").WithOp(opArchived)
		}
	}

	downline, err := s.hierarchy.DownlineOf(ctx, callerID)
	if err != nil {
		return nil, err
	}
	owners := make([]uuid.UUID, 0, len(downline)+1)
	owners = append(owners, callerID)
	for _, u := range downline {
		owners = append(owners, u.ID)
	}

	items, err := s.repo.ListArchived(ctx, owners, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list archived leads", err).WithOp(opArchived)
	}
	return items, nil
}

func (s *Service) authorizeView(ctx context.Context, caller hierarchyrepo.User, lead repository.Lead) error {
	if caller.Role == hierarchydomain.RoleAdmin {
		return nil
	}
	if lead.AssignedTo == nil {
		return apperr.Forbidden("lead is not in your scope").WithOp(opTimeline)
	}
	if *lead.AssignedTo == caller.ID {
		return nil
	}
	ok, err := s.hierarchy.IsInDownline(ctx, caller.ID, *lead.AssignedTo)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("lead is not in your scope").WithOp(opTimeline)
	}
	return nil
}
