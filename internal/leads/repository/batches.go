package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type Batch struct {
	ID         uuid.UUID
	FileLabel  string
	UploadedBy uuid.UUID
	TotalCount int
	CreatedAt  time.Time
}

type BatchRow struct {
	Phone string
	Name  string
}

// CreateBatch inserts the batch header and one New lead per row, all owned by
// uploaderID, in a single transaction.
func (r *Repository) CreateBatch(ctx context.Context, fileLabel string, uploaderID uuid.UUID, rows []BatchRow) (Batch, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Batch{}, err
	}
	defer tx.Rollback(ctx)

	var b Batch
	err = tx.QueryRow(ctx, `
		INSERT INTO lead_batches (file_label, uploaded_by, total_count)
		VALUES ($1, $2, $3)
		RETURNING id, file_label, uploaded_by, total_count, created_at
	`, fileLabel, uploaderID, len(rows)).Scan(&b.ID, &b.FileLabel, &b.UploadedBy, &b.TotalCount, &b.CreatedAt)
	if err != nil {
		return Batch{}, err
	}

	for _, row := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO leads (batch_id, phone, name, assigned_to, status)
			VALUES ($1, $2, $3, $4, 'New')
		`, b.ID, row.Phone, row.Name, uploaderID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return Batch{}, ErrDuplicatePhone
			}
			return Batch{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// ListBatches returns the upload history, newest first.
func (r *Repository) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, file_label, uploaded_by, total_count, created_at
		FROM lead_batches
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Batch, 0)
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.FileLabel, &b.UploadedBy, &b.TotalCount, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// EligibleBatch is a batch in which ownerID still holds undistributed leads.
type EligibleBatch struct {
	Batch
	OwnedNewCount int
}

// EligibleBatches lists batches where ownerID still owns New leads, newest
// batch first. A batch drops out the moment that count reaches zero, so
// callers must not cache the result across distributions.
func (r *Repository) EligibleBatches(ctx context.Context, ownerID uuid.UUID) ([]EligibleBatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.file_label, b.uploaded_by, b.total_count, b.created_at, COUNT(l.id)
		FROM lead_batches b
		JOIN leads l ON l.batch_id = b.id
		WHERE l.assigned_to = $1 AND l.status = 'New'
		GROUP BY b.id
		ORDER BY b.created_at DESC, b.id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]EligibleBatch, 0)
	for rows.Next() {
		var eb EligibleBatch
		if err := rows.Scan(&eb.ID, &eb.FileLabel, &eb.UploadedBy, &eb.TotalCount, &eb.CreatedAt, &eb.OwnedNewCount); err != nil {
			return nil, err
		}
		items = append(items, eb)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// PoolSize counts the New leads ownerID holds, across all batches when
// batchID is nil or within one batch otherwise.
func (r *Repository) PoolSize(ctx context.Context, ownerID uuid.UUID, batchID *uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE assigned_to = $1 AND status = 'New'
		  AND ($2::uuid IS NULL OR batch_id = $2)
	`, ownerID, batchID).Scan(&n)
	return n, err
}
