package repository

import (
	"context"
	"errors"
	"time"

	"salesops_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrVersionConflict signals that a conditional update lost a race with
	// a concurrent writer on the same lead row.
	ErrVersionConflict = errors.New("lead version conflict")
	// ErrPoolShort signals that a claim found fewer New leads than requested.
	ErrPoolShort = errors.New("pool short of requested count")
	// ErrDuplicatePhone signals a phone number already present in the batch.
	ErrDuplicatePhone = errors.New("duplicate phone in batch")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID            uuid.UUID
	BatchID       uuid.UUID
	Phone         string
	Name          string
	AssignedTo    *uuid.UUID
	Status        domain.Status
	TouchCount    int
	ArchiveReason *domain.ArchiveReason
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const leadColumns = `id, batch_id, phone, name, assigned_to, status, touch_count, archive_reason, version, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.BatchID, &l.Phone, &l.Name, &l.AssignedTo, &l.Status,
		&l.TouchCount, &l.ArchiveReason, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func scanLeads(rows pgx.Rows) ([]Lead, error) {
	defer rows.Close()
	items := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// ListAssignedTo returns the active (non-archived) leads owned by userID,
// oldest first so agents work their queue in arrival order.
func (r *Repository) ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_to = $1 AND status <> 'Archived'
		ORDER BY ingest_seq ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanLeads(rows)
}

// ArchivedFilter narrows the archived-leads listing. Zero values match
// everything.
type ArchivedFilter struct {
	Reason  string
	BatchID *uuid.UUID
	Search  string // matches name or phone, case-insensitive
}

// ListArchived returns Archived leads owned by any of ownerIDs, most recently
// archived first.
func (r *Repository) ListArchived(ctx context.Context, ownerIDs []uuid.UUID, filter ArchivedFilter) ([]Lead, error) {
	if len(ownerIDs) == 0 {
		return []Lead{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = 'Archived'
		  AND assigned_to = ANY($1)
		  AND ($2 = '' OR archive_reason = $2)
		  AND ($3::uuid IS NULL OR batch_id = $3)
		  AND ($4 = '' OR name ILIKE '%' || $4 || '%' OR phone LIKE '%' || $4 || '%')
		ORDER BY updated_at DESC, id ASC
	`, ownerIDs, filter.Reason, filter.BatchID, filter.Search)
	if err != nil {
		return nil, err
	}
	return scanLeads(rows)
}

// StatusCounts holds per-status lead totals for a set of owners.
type StatusCounts struct {
	New       int
	Assigned  int
	Contacted int
	Converted int
	Archived  int
}

func (r *Repository) CountByStatus(ctx context.Context, ownerIDs []uuid.UUID) (StatusCounts, error) {
	var c StatusCounts
	if len(ownerIDs) == 0 {
		return c, nil
	}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'New'),
			COUNT(*) FILTER (WHERE status = 'Assigned'),
			COUNT(*) FILTER (WHERE status = 'Contacted'),
			COUNT(*) FILTER (WHERE status = 'Converted'),
			COUNT(*) FILTER (WHERE status = 'Archived')
		FROM leads
		WHERE assigned_to = ANY($1)
	`, ownerIDs).Scan(&c.New, &c.Assigned, &c.Contacted, &c.Converted, &c.Archived)
	return c, err
}

// CountUntouchedAssigned counts leads sitting with userID that have had no
// call attempt since assignment. The follow-up reminder worker uses this.
func (r *Repository) CountUntouchedAssigned(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE assigned_to = $1 AND status = 'Assigned' AND touch_count = 0
	`, userID).Scan(&n)
	return n, err
}
