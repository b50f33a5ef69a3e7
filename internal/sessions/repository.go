package sessions

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratify/backend/internal/models"
)

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `s.id, s.presentation_id, s.join_code, s.current_slide_id, s.status, s.started_at, s.ended_at, s.created_at`

// Create inserts a new pending session.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (presentation_id, join_code, current_slide_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.PresentationID, s.JoinCode, s.CurrentSlideID, s.Status).
		Scan(&s.ID, &s.CreatedAt)
}

// GetByID returns a session by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	err := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = $1`, id).
		Scan(&s.ID, &s.PresentationID, &s.JoinCode, &s.CurrentSlideID, &s.Status, &s.StartedAt, &s.EndedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const detailQuery = `SELECT ` + sessionColumns + `, p.title, p.slug, p.speaker_id
	FROM sessions s JOIN presentations p ON p.id = s.presentation_id`

func (r *Repository) detail(ctx context.Context, where string, args ...interface{}) (*models.SessionDetail, error) {
	var d models.SessionDetail
	err := r.pool.QueryRow(ctx, detailQuery+" "+where, args...).Scan(
		&d.ID, &d.PresentationID, &d.JoinCode, &d.CurrentSlideID, &d.Status,
		&d.StartedAt, &d.EndedAt, &d.CreatedAt,
		&d.PresentationTitle, &d.PresentationSlug, &d.SpeakerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSlides(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) loadSlides(ctx context.Context, d *models.SessionDetail) error {
	const q = `SELECT id, presentation_id, order_index, type, content, created_at, updated_at
		FROM slides WHERE presentation_id = $1 ORDER BY order_index`
	rows, err := r.pool.Query(ctx, q, d.PresentationID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Slide
		if err := rows.Scan(&s.ID, &s.PresentationID, &s.OrderIndex, &s.Type, &s.Content, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return err
		}
		d.Slides = append(d.Slides, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if d.CurrentSlideID != nil {
		for i := range d.Slides {
			if d.Slides[i].ID == *d.CurrentSlideID {
				d.CurrentSlide = &d.Slides[i]
				break
			}
		}
	}
	return nil
}

// DetailByID loads a session with its presentation and slides, or nil.
func (r *Repository) DetailByID(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	return r.detail(ctx, `WHERE s.id = $1`, id)
}

// DetailByJoinCode loads the session holding a join code, or nil. Codes
// are matched case-insensitively. The live holder wins; when only ended
// sessions ever used the code, the most recent one is returned so callers
// can tell "ended" apart from "never existed".
func (r *Repository) DetailByJoinCode(ctx context.Context, code string) (*models.SessionDetail, error) {
	return r.detail(ctx,
		`WHERE s.join_code = $1 ORDER BY (s.status <> 'ended') DESC, s.created_at DESC LIMIT 1`,
		strings.ToUpper(code))
}

// DetailBySlug loads the most recently created live session of the
// presentation with the given slug, or nil.
func (r *Repository) DetailBySlug(ctx context.Context, slug string) (*models.SessionDetail, error) {
	return r.detail(ctx, `WHERE p.slug = $1 AND s.status <> 'ended' ORDER BY s.created_at DESC LIMIT 1`, slug)
}

// List returns the speaker's sessions newest first with aggregate counts,
// optionally filtered by status, plus the total matching count.
func (r *Repository) List(ctx context.Context, speakerID uuid.UUID, status models.SessionStatus, limit, offset int) ([]models.SessionSummary, int, error) {
	where := `FROM sessions s JOIN presentations p ON p.id = s.presentation_id WHERE p.speaker_id = $1`
	args := []interface{}{speakerID}
	if status != "" {
		where += ` AND s.status = $2`
		args = append(args, status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + sessionColumns + `,
		(SELECT COUNT(*) FROM participants WHERE session_id = s.id),
		(SELECT COUNT(*) FROM responses WHERE session_id = s.id)
		` + where + ` ORDER BY s.created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]models.SessionSummary, 0)
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.ID, &s.PresentationID, &s.JoinCode, &s.CurrentSlideID, &s.Status,
			&s.StartedAt, &s.EndedAt, &s.CreatedAt, &s.ParticipantCount, &s.ResponseCount); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

// LiveJoinCodeExists reports whether a non-ended session holds the code.
func (r *Repository) LiveJoinCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE join_code = $1 AND status <> 'ended')`,
		strings.ToUpper(code)).Scan(&exists)
	return exists, err
}

// UpdateStatus sets the session status and, when given, the start or end stamp.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, startedAt, endedAt *time.Time) error {
	const q = `UPDATE sessions SET status = $1,
		started_at = COALESCE($2, started_at),
		ended_at = COALESCE($3, ended_at)
		WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, status, startedAt, endedAt, id)
	return err
}

// UpdateCurrentSlide points the session at a slide.
func (r *Repository) UpdateCurrentSlide(ctx context.Context, id, slideID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET current_slide_id = $1 WHERE id = $2`, slideID, id)
	return err
}

// Statistics aggregates participant and response activity for a session,
// or returns nil if the session does not exist.
func (r *Repository) Statistics(ctx context.Context, id uuid.UUID) (*models.SessionStatistics, error) {
	const q = `SELECT s.status, s.started_at, s.ended_at,
		(SELECT COUNT(*) FROM participants WHERE session_id = s.id),
		(SELECT COUNT(*) FROM responses WHERE session_id = s.id)
		FROM sessions s WHERE s.id = $1`

	stats := models.SessionStatistics{SessionID: id}
	var startedAt, endedAt *time.Time
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&stats.Status, &startedAt, &endedAt, &stats.ParticipantCount, &stats.TotalResponses)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if startedAt != nil && endedAt != nil {
		secs := int(endedAt.Sub(*startedAt).Seconds())
		stats.DurationSeconds = &secs
	}

	stats.ResponsesPerSlide = make(map[string]int)
	rows, err := r.pool.Query(ctx,
		`SELECT slide_id, COUNT(*) FROM responses WHERE session_id = $1 GROUP BY slide_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var slideID uuid.UUID
		var count int
		if err := rows.Scan(&slideID, &count); err != nil {
			return nil, err
		}
		stats.ResponsesPerSlide[slideID.String()] = count
	}
	return &stats, rows.Err()
}

// EndExpired ends every non-ended session older than maxAge and returns
// how many were closed.
func (r *Repository) EndExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET status = 'ended', ended_at = NOW() WHERE status <> 'ended' AND created_at < $1`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
