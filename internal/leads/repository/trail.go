package repository

import (
	"context"
	"time"

	"salesops_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TrailEntry is one immutable row of a lead's custody or history trail.
// Seq is assigned by the store and breaks ties between entries that share
// a timestamp, giving every lead a total order.
type TrailEntry struct {
	Seq          int64
	LeadID       uuid.UUID
	Kind         domain.TrailKind
	Action       string
	Detail       string
	ActorID      uuid.UUID
	AssignedFrom *uuid.UUID
	AssignedTo   *uuid.UUID
	RoleAtTime   *string
	OccurredAt   time.Time
}

type trailInsert struct {
	LeadID       uuid.UUID
	Kind         domain.TrailKind
	Action       string
	Detail       string
	ActorID      uuid.UUID
	AssignedFrom *uuid.UUID
	AssignedTo   *uuid.UUID
	RoleAtTime   *string
}

// appendTrail writes trail rows inside the caller's transaction so the trail
// commits or rolls back together with the lead mutation it records.
func appendTrail(ctx context.Context, tx pgx.Tx, entries []trailInsert) error {
	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO lead_trail (lead_id, kind, action, detail, actor_id, assigned_from, assigned_to, role_at_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.LeadID, e.Kind, e.Action, e.Detail, e.ActorID, e.AssignedFrom, e.AssignedTo, e.RoleAtTime)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListTrail returns every trail entry for a lead oldest first, custody and
// history interleaved in the order they occurred.
func (r *Repository) ListTrail(ctx context.Context, leadID uuid.UUID) ([]TrailEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seq, lead_id, kind, action, detail, actor_id, assigned_from, assigned_to, role_at_time, occurred_at
		FROM lead_trail
		WHERE lead_id = $1
		ORDER BY occurred_at ASC, seq ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]TrailEntry, 0)
	for rows.Next() {
		var e TrailEntry
		if err := rows.Scan(&e.Seq, &e.LeadID, &e.Kind, &e.Action, &e.Detail, &e.ActorID,
			&e.AssignedFrom, &e.AssignedTo, &e.RoleAtTime, &e.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
