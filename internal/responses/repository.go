package responses

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratify/backend/internal/models"
)

// Repository handles response persistence. Responses are immutable once
// created; there is no update path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a response repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a response row.
func (r *Repository) Create(ctx context.Context, resp *models.Response) error {
	const q = `INSERT INTO responses (session_id, slide_id, participant_id, content, is_ai_response)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, resp.SessionID, resp.SlideID, resp.ParticipantID, resp.Content, resp.IsAIResponse).
		Scan(&resp.ID, &resp.CreatedAt)
}

// ListBySession returns all responses of a session, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Response, error) {
	const q = `SELECT id, session_id, slide_id, participant_id, content, is_ai_response, created_at
		FROM responses WHERE session_id = $1 ORDER BY created_at`
	return r.list(ctx, q, sessionID)
}

// ListBySlide returns all responses for one slide of a session, oldest first.
func (r *Repository) ListBySlide(ctx context.Context, sessionID, slideID uuid.UUID) ([]models.Response, error) {
	const q = `SELECT id, session_id, slide_id, participant_id, content, is_ai_response, created_at
		FROM responses WHERE session_id = $1 AND slide_id = $2 ORDER BY created_at`
	return r.list(ctx, q, sessionID, slideID)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Response, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Response
	for rows.Next() {
		var resp models.Response
		if err := rows.Scan(&resp.ID, &resp.SessionID, &resp.SlideID, &resp.ParticipantID, &resp.Content, &resp.IsAIResponse, &resp.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}
