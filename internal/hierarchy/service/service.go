// Package service resolves the reporting hierarchy: who sits below an
// actor, and which roles an actor may see and target.
package service

import (
	"context"
	"errors"

	"salesops_backend/internal/hierarchy/domain"
	"salesops_backend/internal/hierarchy/repository"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the resolver.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ListDirectReports(ctx context.Context, managerIDs []uuid.UUID) ([]repository.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// Service computes downlines over the reports-to forest.
// The downline is computed freshly on every call; there is no cached
// child-list to go stale when a user is re-parented.
type Service struct {
	repo Repository
}

// New creates a new hierarchy service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, apperr.NotFound("user not found")
		}
		return repository.User{}, err
	}
	return user, nil
}

// DownlineOf returns every transitive subordinate of the actor, breadth
// first. The traversal carries a visited set bounded by the total user
// count, so it terminates even if the stored graph has a cycle.
func (s *Service) DownlineOf(ctx context.Context, actorID uuid.UUID) ([]repository.User, error) {
	if _, err := s.GetUser(ctx, actorID); err != nil {
		return nil, err
	}

	bound, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{actorID: true}
	downline := make([]repository.User, 0)
	frontier := []uuid.UUID{actorID}

	for len(frontier) > 0 && len(visited) <= bound {
		reports, err := s.repo.ListDirectReports(ctx, frontier)
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, user := range reports {
			if visited[user.ID] {
				continue
			}
			visited[user.ID] = true
			downline = append(downline, user)
			frontier = append(frontier, user.ID)
		}
	}

	return downline, nil
}

// IsInDownline reports whether target is a transitive subordinate of
// actor. Fails closed: an actor is never in its own downline, and any
// lookup error reads as "not a subordinate".
func (s *Service) IsInDownline(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	if actorID == targetID {
		return false, nil
	}

	downline, err := s.DownlineOf(ctx, actorID)
	if err != nil {
		return false, err
	}

	for _, user := range downline {
		if user.ID == targetID {
			return true, nil
		}
	}
	return false, nil
}

// RoleTabsFor returns the ordered roles the actor may target, with the
// actor's role re-derived from the user store rather than any client claim.
func (s *Service) RoleTabsFor(ctx context.Context, actorID uuid.UUID) ([]domain.Role, error) {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return domain.VisibleRoleTabs(actor.Role), nil
}
