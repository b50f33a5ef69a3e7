package slides

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratify/backend/internal/models"
)

// Repository handles slide persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a slide repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const slideColumns = `id, presentation_id, order_index, type, content, created_at, updated_at`

func scanSlide(row pgx.Row) (*models.Slide, error) {
	var s models.Slide
	err := row.Scan(&s.ID, &s.PresentationID, &s.OrderIndex, &s.Type, &s.Content, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create appends a slide at the end of the presentation.
func (r *Repository) Create(ctx context.Context, s *models.Slide) error {
	const q = `INSERT INTO slides (presentation_id, order_index, type, content)
		VALUES ($1,
			(SELECT COALESCE(MAX(order_index) + 1, 0) FROM slides WHERE presentation_id = $1),
			$2, $3)
		RETURNING id, order_index, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.PresentationID, s.Type, s.Content).
		Scan(&s.ID, &s.OrderIndex, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a slide by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Slide, error) {
	s, err := scanSlide(r.pool.QueryRow(ctx, `SELECT `+slideColumns+` FROM slides WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListByPresentation returns the presentation's slides ordered by order_index.
func (r *Repository) ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Slide, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+slideColumns+` FROM slides WHERE presentation_id = $1 ORDER BY order_index`,
		presentationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Slide
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// First returns the presentation's first slide by order, or nil if it has none.
func (r *Repository) First(ctx context.Context, presentationID uuid.UUID) (*models.Slide, error) {
	s, err := scanSlide(r.pool.QueryRow(ctx,
		`SELECT `+slideColumns+` FROM slides WHERE presentation_id = $1 ORDER BY order_index LIMIT 1`,
		presentationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// SlideInPresentation returns the slide only if it belongs to the given
// presentation, nil otherwise. Used by the session slide-change path.
func (r *Repository) SlideInPresentation(ctx context.Context, slideID, presentationID uuid.UUID) (*models.Slide, error) {
	s, err := scanSlide(r.pool.QueryRow(ctx,
		`SELECT `+slideColumns+` FROM slides WHERE id = $1 AND presentation_id = $2`,
		slideID, presentationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// Update updates a slide's type and content.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, slideType string, content []byte) error {
	const q = `UPDATE slides SET type = $1, content = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, slideType, content, id)
	return err
}

// Delete removes a slide and compacts the order of those after it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var presentationID uuid.UUID
	var orderIndex int
	err = tx.QueryRow(ctx, `DELETE FROM slides WHERE id = $1 RETURNING presentation_id, order_index`, id).
		Scan(&presentationID, &orderIndex)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE slides SET order_index = order_index - 1 WHERE presentation_id = $1 AND order_index > $2`,
		presentationID, orderIndex)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reorder applies a full ordering of slide IDs to a presentation.
func (r *Repository) Reorder(ctx context.Context, presentationID uuid.UUID, slideIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, slideID := range slideIDs {
		tag, err := tx.Exec(ctx,
			`UPDATE slides SET order_index = $1, updated_at = NOW() WHERE id = $2 AND presentation_id = $3`,
			i, slideID, presentationID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errors.New("slide does not belong to presentation")
		}
	}
	return tx.Commit(ctx)
}
