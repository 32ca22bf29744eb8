package repository

import (
	"context"
	"errors"
	"fmt"

	"salesops_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type CallLogParams struct {
	LeadID          uuid.UUID
	ExpectedVersion int
	ActorID         uuid.UUID
	Outcome         domain.Outcome
	Notes           string
	DurationSeconds int
	NewStatus       domain.Status
	ArchiveReason   *domain.ArchiveReason
}

// ApplyCallLog records one call attempt: it increments the touch count and
// moves the lead to its computed status, guarded by an optimistic version
// check. ErrVersionConflict is returned when the row changed since the caller
// read it; the caller decides whether to re-read and retry. History entries
// for the call (and the archival, when the call caused one) commit atomically
// with the row update.
func (r *Repository) ApplyCallLog(ctx context.Context, p CallLogParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	after, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET touch_count = touch_count + 1, status = $1, archive_reason = $2,
		    version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4
		RETURNING `+leadColumns,
		p.NewStatus, p.ArchiveReason, p.LeadID, p.ExpectedVersion))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Lead{}, err
		}
		// No row matched: distinguish a missing lead from a lost race.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, p.LeadID).Scan(&exists); err != nil {
			return Lead{}, err
		}
		if !exists {
			return Lead{}, ErrNotFound
		}
		return Lead{}, ErrVersionConflict
	}

	detail := fmt.Sprintf("outcome: %s", p.Outcome)
	if p.DurationSeconds > 0 {
		detail += fmt.Sprintf("; duration: %ds", p.DurationSeconds)
	}
	if p.Notes != "" {
		detail += fmt.Sprintf("; notes: %s", p.Notes)
	}
	entries := []trailInsert{{
		LeadID:  p.LeadID,
		Kind:    domain.TrailHistory,
		Action:  domain.ActionCallLogged,
		Detail:  detail,
		ActorID: p.ActorID,
	}}
	switch p.NewStatus {
	case domain.StatusArchived:
		reason := ""
		if p.ArchiveReason != nil {
			reason = string(*p.ArchiveReason)
		}
		entries = append(entries, trailInsert{
			LeadID:  p.LeadID,
			Kind:    domain.TrailHistory,
			Action:  domain.ActionArchived,
			Detail:  reason,
			ActorID: p.ActorID,
		})
	case domain.StatusConverted:
		entries = append(entries, trailInsert{
			LeadID:  p.LeadID,
			Kind:    domain.TrailHistory,
			Action:  domain.ActionConverted,
			ActorID: p.ActorID,
		})
	}
	if err := appendTrail(ctx, tx, entries); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return after, nil
}
