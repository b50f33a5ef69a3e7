package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratify/backend/internal/models"
)

// Repository handles speaker account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a speaker repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new speaker account.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string) (*models.Speaker, error) {
	const q = `INSERT INTO speakers (email, password_hash, full_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, full_name, created_at, updated_at`
	var s models.Speaker
	err := r.pool.QueryRow(ctx, q, email, passwordHash, fullName).
		Scan(&s.ID, &s.Email, &s.PasswordHash, &s.FullName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByEmail returns a speaker by email, or nil if absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Speaker, error) {
	const q = `SELECT id, email, password_hash, full_name, created_at, updated_at
		FROM speakers WHERE email = $1`
	var s models.Speaker
	err := r.pool.QueryRow(ctx, q, email).
		Scan(&s.ID, &s.Email, &s.PasswordHash, &s.FullName, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a speaker by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Speaker, error) {
	const q = `SELECT id, email, password_hash, full_name, created_at, updated_at
		FROM speakers WHERE id = $1`
	var s models.Speaker
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.Email, &s.PasswordHash, &s.FullName, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
