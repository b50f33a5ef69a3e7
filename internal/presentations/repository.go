package presentations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratify/backend/internal/models"
)

// Repository handles presentation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presentation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new presentation.
func (r *Repository) Create(ctx context.Context, p *models.Presentation) error {
	const q = `INSERT INTO presentations (speaker_id, title, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.SpeakerID, p.Title, p.Slug, p.Description).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns a presentation by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Presentation, error) {
	const q = `SELECT id, speaker_id, title, slug, description, created_at, updated_at
		FROM presentations WHERE id = $1`
	var p models.Presentation
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.SpeakerID, &p.Title, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySlug returns a presentation by slug, or nil if absent.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Presentation, error) {
	const q = `SELECT id, speaker_id, title, slug, description, created_at, updated_at
		FROM presentations WHERE slug = $1`
	var p models.Presentation
	err := r.pool.QueryRow(ctx, q, slug).
		Scan(&p.ID, &p.SpeakerID, &p.Title, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBySpeaker returns all presentations owned by a speaker, newest first.
func (r *Repository) ListBySpeaker(ctx context.Context, speakerID uuid.UUID) ([]models.Presentation, error) {
	const q = `SELECT id, speaker_id, title, slug, description, created_at, updated_at
		FROM presentations WHERE speaker_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, speakerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Presentation
	for rows.Next() {
		var p models.Presentation
		if err := rows.Scan(&p.ID, &p.SpeakerID, &p.Title, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update updates presentation title and description.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description string) error {
	const q = `UPDATE presentations SET title = $1, description = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, title, description, id)
	return err
}

// Delete removes a presentation and, via cascade, its slides and sessions.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM presentations WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// IsOwnedBy reports whether the presentation exists and belongs to the speaker.
func (r *Repository) IsOwnedBy(ctx context.Context, presentationID, speakerID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM presentations WHERE id = $1 AND speaker_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, presentationID, speakerID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
