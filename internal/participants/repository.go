package participants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratify/backend/internal/models"
)

// Repository handles participant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a participant row for a freshly joined connection.
func (r *Repository) Create(ctx context.Context, p *models.Participant) error {
	const q = `INSERT INTO participants (session_id, display_name, connection_id, is_anonymous)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at`
	return r.pool.QueryRow(ctx, q, p.SessionID, p.DisplayName, p.ConnectionID, p.IsAnonymous).
		Scan(&p.ID, &p.JoinedAt)
}

// MarkLeft records the leave time and clears the connection correlation.
// The participant row itself survives disconnect.
func (r *Repository) MarkLeft(ctx context.Context, id uuid.UUID, leftAt time.Time) error {
	const q = `UPDATE participants SET left_at = $1, connection_id = NULL WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, leftAt, id)
	return err
}

// ListBySession returns all participants of a session ordered by join time.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	const q = `SELECT id, session_id, display_name, connection_id, is_anonymous, joined_at, left_at
		FROM participants WHERE session_id = $1 ORDER BY joined_at`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.DisplayName, &p.ConnectionID, &p.IsAnonymous, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
