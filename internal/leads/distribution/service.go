package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesops_backend/internal/events"
	hierarchydomain "salesops_backend/internal/hierarchy/domain"
	hierarchyrepo "salesops_backend/internal/hierarchy/repository"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opDistribute = "leads.distribution.service.distribute"
	opAssignAll  = "leads.distribution.service.assign_all"
	opReassign   = "leads.distribution.service.reassign"
)

// Repository is the slice of the lead store the distribution engine needs.
type Repository interface {
	ClaimAndAssign(ctx context.Context, p repository.ClaimParams) (repository.ClaimResult, error)
	Reassign(ctx context.Context, p repository.ReassignParams) (repository.Lead, error)
	PoolSize(ctx context.Context, ownerID uuid.UUID, batchID *uuid.UUID) (int, error)
}

// Hierarchy answers who an actor is and who reports to them.
type Hierarchy interface {
	GetUser(ctx context.Context, id uuid.UUID) (hierarchyrepo.User, error)
	IsInDownline(ctx context.Context, actorID, targetID uuid.UUID) (bool, error)
}

// ReminderScheduler enqueues a delayed follow-up check for a recipient who
// just received leads.
type ReminderScheduler interface {
	ScheduleFollowUp(ctx context.Context, recipientID uuid.UUID, runAt time.Time) error
}

type Service struct {
	repo      Repository
	hierarchy Hierarchy
	locker    Locker
	scheduler ReminderScheduler
	bus       events.Bus
	cfg       config.SchedulerConfig
	lockTTL   time.Duration
	log       *logger.Logger
}

func NewService(repo Repository, hierarchy Hierarchy, locker Locker, scheduler ReminderScheduler,
	bus events.Bus, cfg config.SchedulerConfig, lockCfg config.LockConfig, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		hierarchy: hierarchy,
		locker:    locker,
		scheduler: scheduler,
		bus:       bus,
		cfg:       cfg,
		lockTTL:   lockCfg.GetDistributionLockTTL(),
		log:       log,
	}
}

// Assignment is one recipient's requested share.
type Assignment struct {
	RecipientID uuid.UUID
	Count       int
}

// Scope selects which pool a distribution draws from: one batch, or every
// batch the actor owns leads in.
type Scope struct {
	BatchID *uuid.UUID
}

func ScopeAll() Scope                    { return Scope{} }
func ScopeBatch(batchID uuid.UUID) Scope { return Scope{BatchID: &batchID} }

func (s Scope) String() string {
	if s.BatchID == nil {
		return "ALL"
	}
	return s.BatchID.String()
}

// RecipientResult reports how many leads one recipient received.
type RecipientResult struct {
	RecipientID uuid.UUID
	Count       int
}

type Result struct {
	TotalMoved int
	Recipients []RecipientResult
}

// PoolExhaustedDetails is attached to the Conflict error a short claim
// raises, so the caller can display the live pool size.
type PoolExhaustedDetails struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

// Distribute moves leads from the actor's pool to the given recipients.
// Preconditions are checked in a fixed order: the actor's role must permit
// distribution, every recipient must sit strictly below the actor in the
// hierarchy, then counts must be non-negative with a positive sum, and the pool
// must cover the sum at the instant leads are claimed. A short pool fails
// the whole request; nothing is ever partially applied.
func (s *Service) Distribute(ctx context.Context, actorID uuid.UUID, assignments []Assignment, scope Scope) (Result, error) {
	actor, err := s.hierarchy.GetUser(ctx, actorID)
	if err != nil {
		return Result{}, err
	}
	if !actor.Role.CanDistribute() {
		return Result{}, apperr.Forbidden("role is not permitted to distribute leads").WithOp(opDistribute)
	}
	if len(assignments) == 0 {
		return Result{}, apperr.Validation("at least one recipient is required").WithOp(opDistribute)
	}

	seen := make(map[uuid.UUID]struct{}, len(assignments))
	for _, a := range assignments {
		if _, dup := seen[a.RecipientID]; dup {
			return Result{}, apperr.Validation(
				fmt.Sprintf("recipient %s appears more than once", a.RecipientID)).WithOp(opDistribute)
		}
		seen[a.RecipientID] = struct{}{}

		ok, err := s.hierarchy.IsInDownline(ctx, actorID, a.RecipientID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, apperr.Forbidden(
				fmt.Sprintf("recipient %s is not in your downline", a.RecipientID)).WithOp(opDistribute)
		}
	}

	total := 0
	for _, a := range assignments {
		if a.Count < 0 {
			return Result{}, apperr.Validation("assignment counts must not be negative").WithOp(opDistribute)
		}
		total += a.Count
	}
	if total == 0 {
		return Result{}, apperr.Validation("assignment counts sum to zero").WithOp(opDistribute)
	}

	lockKey := fmt.Sprintf("leads:distribution:%s:%s", actorID, scope)
	release, err := s.locker.Obtain(ctx, lockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return Result{}, apperr.Conflict("another distribution from this pool is in progress").WithOp(opDistribute)
		}
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to acquire distribution lock", err).WithOp(opDistribute)
	}
	defer release()

	claims := make([]repository.ClaimAssignment, 0, len(assignments))
	for _, a := range assignments {
		claims = append(claims, repository.ClaimAssignment{RecipientID: a.RecipientID, Count: a.Count})
	}
	claimed, err := s.repo.ClaimAndAssign(ctx, repository.ClaimParams{
		ActorID:     actorID,
		ActorRole:   string(actor.Role),
		BatchID:     scope.BatchID,
		Assignments: claims,
	})
	if err != nil {
		var short *repository.ShortClaimError
		if errors.As(err, &short) {
			return Result{}, apperr.Conflict(
				fmt.Sprintf("you only have %d leads in this pool", short.Available)).
				WithDetails(PoolExhaustedDetails{Requested: short.Requested, Available: short.Available}).
				WithOp(opDistribute)
		}
		return Result{}, apperr.Wrap(apperr.KindInternal, "distribution failed", err).WithOp(opDistribute)
	}

	result := Result{TotalMoved: claimed.Total, Recipients: make([]RecipientResult, 0, len(assignments))}
	for _, a := range assignments {
		if a.Count == 0 {
			continue
		}
		result.Recipients = append(result.Recipients, RecipientResult{RecipientID: a.RecipientID, Count: claimed.Moved[a.RecipientID]})
	}

	s.log.Distribution(actorID.String(), scope.String(), claimed.Total, len(result.Recipients))
	s.bus.Publish(ctx, events.LeadsDistributed{
		BaseEvent:  events.NewBaseEvent(),
		ActorID:    actorID,
		Scope:      scope.String(),
		Recipients: claimed.Moved,
	})

	if s.scheduler != nil {
		runAt := time.Now().Add(s.cfg.GetFollowUpDelay())
		for _, rr := range result.Recipients {
			if err := s.scheduler.ScheduleFollowUp(ctx, rr.RecipientID, runAt); err != nil {
				s.log.Warn("failed to schedule follow-up reminder", "recipientId", rr.RecipientID, "error", err)
			}
		}
	}
	return result, nil
}

// AssignAll distributes the actor's entire pool in scope to one recipient.
func (s *Service) AssignAll(ctx context.Context, actorID, recipientID uuid.UUID, scope Scope) (Result, error) {
	pool, err := s.repo.PoolSize(ctx, actorID, scope.BatchID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to count pool", err).WithOp(opAssignAll)
	}
	if pool == 0 {
		return Result{}, apperr.Validation("no leads available in this pool").WithOp(opAssignAll)
	}
	return s.Distribute(ctx, actorID, []Assignment{{RecipientID: recipientID, Count: pool}}, scope)
}

// EqualSplit divides pool across the recipients, floor per head. The
// remainder is deliberately left undistributed; callers resubmit it rather
// than have the engine over-commit silently. Advisory only.
func EqualSplit(pool int, recipients []uuid.UUID) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(recipients))
	if pool <= 0 || len(recipients) == 0 {
		return out
	}
	share := pool / len(recipients)
	for _, id := range recipients {
		out[id] = share
	}
	return out
}

// Reassign is the administrative override that moves a single lead to a new
// owner, reactivating it if it was Archived. Only Admins may call it, and the
// transfer is recorded in the custody trail like any other.
func (s *Service) Reassign(ctx context.Context, adminID, leadID, newOwnerID uuid.UUID) (repository.Lead, error) {
	admin, err := s.hierarchy.GetUser(ctx, adminID)
	if err != nil {
		return repository.Lead{}, err
	}
	if admin.Role != hierarchydomain.RoleAdmin {
		return repository.Lead{}, apperr.Forbidden("only admins may reassign leads").WithOp(opReassign)
	}
	if newOwnerID == adminID {
		return repository.Lead{}, apperr.Validation("cannot reassign a lead to yourself").WithOp(opReassign)
	}

	newOwner, err := s.hierarchy.GetUser(ctx, newOwnerID)
	if err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.repo.Reassign(ctx, repository.ReassignParams{
		LeadID:     leadID,
		NewOwnerID: newOwner.ID,
		ActorID:    adminID,
		ActorRole:  string(admin.Role),
		Detail:     fmt.Sprintf("admin override by %s", admin.Name),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found").WithOp(opReassign)
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "reassignment failed", err).WithOp(opReassign)
	}

	s.log.Info("lead reassigned", "leadId", leadID, "adminId", adminID, "newOwnerId", newOwnerID)
	s.bus.Publish(ctx, events.LeadReassigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		AdminID:    adminID,
		NewOwnerID: newOwnerID,
	})
	return lead, nil
}
