package repository

import (
	"context"
	"errors"
	"time"

	"salesops_backend/internal/hierarchy/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      domain.Role
	ReportsTo *uuid.UUID
	CreatedAt time.Time
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role, reports_to, created_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &role, &user.ReportsTo, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	user.Role = domain.Role(role)
	return user, err
}

// ListDirectReports returns every user whose reports_to is one of the given
// manager IDs, name order. Used level by level for downline traversal.
func (r *Repository) ListDirectReports(ctx context.Context, managerIDs []uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, role, reports_to, created_at
		FROM users WHERE reports_to = ANY($1)
		ORDER BY name ASC
	`, managerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// CountUsers returns the total user count, the upper bound for any
// downline traversal.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// ListByIDs returns the users with the given IDs, in no particular order.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, role, reports_to, created_at
		FROM users WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	users := make([]User, 0)
	for rows.Next() {
		var user User
		var role string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &role, &user.ReportsTo, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.Role = domain.Role(role)
		users = append(users, user)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return users, nil
}
