package repository

import (
	"context"
	"fmt"

	"salesops_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ClaimAssignment is one recipient's share of a claim.
type ClaimAssignment struct {
	RecipientID uuid.UUID
	Count       int
}

type ClaimParams struct {
	ActorID     uuid.UUID
	ActorRole   string
	BatchID     *uuid.UUID // nil claims across every batch the actor owns
	Assignments []ClaimAssignment
}

// ClaimResult reports what a successful claim moved.
type ClaimResult struct {
	Moved map[uuid.UUID]int
	Total int
}

// ShortClaimError carries the live pool size when a claim cannot be filled.
type ShortClaimError struct {
	Requested int
	Available int
}

func (e *ShortClaimError) Error() string {
	return fmt.Sprintf("requested %d leads but only %d available", e.Requested, e.Available)
}

func (e *ShortClaimError) Unwrap() error { return ErrPoolShort }

// ClaimAndAssign atomically moves sum(counts) New leads from the actor's pool
// to the recipients. Leads are claimed in ingestion order with
// FOR UPDATE SKIP LOCKED, so two racing claims against the same pool never
// select the same row; each simply sees whatever the other has not locked.
// If fewer leads than requested are claimable the whole transaction rolls
// back and a *ShortClaimError reports the live pool size. One custody entry
// is written per moved lead inside the same transaction.
func (r *Repository) ClaimAndAssign(ctx context.Context, p ClaimParams) (ClaimResult, error) {
	total := 0
	for _, a := range p.Assignments {
		total += a.Count
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id FROM leads
		WHERE assigned_to = $1 AND status = 'New'
		  AND ($2::uuid IS NULL OR batch_id = $2)
		ORDER BY ingest_seq ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, p.ActorID, p.BatchID, total)
	if err != nil {
		return ClaimResult{}, err
	}
	claimed := make([]uuid.UUID, 0, total)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return ClaimResult{}, err
		}
		claimed = append(claimed, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return ClaimResult{}, rows.Err()
	}

	if len(claimed) < total {
		return ClaimResult{}, &ShortClaimError{Requested: total, Available: len(claimed)}
	}

	role := p.ActorRole
	result := ClaimResult{Moved: make(map[uuid.UUID]int, len(p.Assignments)), Total: total}
	next := 0
	for _, a := range p.Assignments {
		if a.Count == 0 {
			continue
		}
		share := claimed[next : next+a.Count]
		next += a.Count

		tag, err := tx.Exec(ctx, `
			UPDATE leads
			SET assigned_to = $1, status = 'Assigned', version = version + 1, updated_at = now()
			WHERE id = ANY($2)
		`, a.RecipientID, share)
		if err != nil {
			return ClaimResult{}, err
		}
		if int(tag.RowsAffected()) != len(share) {
			return ClaimResult{}, fmt.Errorf("claim moved %d of %d locked leads", tag.RowsAffected(), len(share))
		}

		entries := make([]trailInsert, 0, len(share))
		for _, leadID := range share {
			recipient := a.RecipientID
			actor := p.ActorID
			entries = append(entries, trailInsert{
				LeadID:       leadID,
				Kind:         domain.TrailCustody,
				Action:       domain.ActionAssigned,
				ActorID:      p.ActorID,
				AssignedFrom: &actor,
				AssignedTo:   &recipient,
				RoleAtTime:   &role,
			})
		}
		if err := appendTrail(ctx, tx, entries); err != nil {
			return ClaimResult{}, err
		}
		result.Moved[a.RecipientID] += a.Count
	}

	if err := tx.Commit(ctx); err != nil {
		return ClaimResult{}, err
	}
	return result, nil
}

type ReassignParams struct {
	LeadID     uuid.UUID
	NewOwnerID uuid.UUID
	ActorID    uuid.UUID
	ActorRole  string
	Detail     string
}

// Reassign transfers a single lead to a new owner under administrative
// authority, reactivating it if it was Archived. The row is locked for the
// duration so a racing call log or distribution cannot interleave. Both a
// custody entry and a history entry are written; when the lead was Archived
// an extra Restored history entry records the reactivation.
func (r *Repository) Reassign(ctx context.Context, p ReassignParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	before, err := scanLead(tx.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, p.LeadID))
	if err != nil {
		return Lead{}, err
	}
	wasArchived := before.Status == domain.StatusArchived

	after, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET assigned_to = $1, status = 'Assigned', archive_reason = NULL,
		    version = version + 1, updated_at = now()
		WHERE id = $2
		RETURNING `+leadColumns, p.NewOwnerID, p.LeadID))
	if err != nil {
		return Lead{}, err
	}

	role := p.ActorRole
	newOwner := p.NewOwnerID
	entries := []trailInsert{
		{
			LeadID:       p.LeadID,
			Kind:         domain.TrailCustody,
			Action:       domain.ActionReassigned,
			Detail:       p.Detail,
			ActorID:      p.ActorID,
			AssignedFrom: before.AssignedTo,
			AssignedTo:   &newOwner,
			RoleAtTime:   &role,
		},
		{
			LeadID:  p.LeadID,
			Kind:    domain.TrailHistory,
			Action:  domain.ActionReassigned,
			Detail:  p.Detail,
			ActorID: p.ActorID,
		},
	}
	if wasArchived {
		reason := ""
		if before.ArchiveReason != nil {
			reason = string(*before.ArchiveReason)
		}
		entries = append(entries, trailInsert{
			LeadID:  p.LeadID,
			Kind:    domain.TrailHistory,
			Action:  domain.ActionRestored,
			Detail:  fmt.Sprintf("reactivated from archive (was %s)", reason),
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
