package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrCreate inserts a session keyed by (webinar_id, scheduled_at), returning
// the existing row when two registrants race for the same timestamp.
func (r *Repository) GetOrCreate(ctx context.Context, webinarID uuid.UUID, scheduledAt time.Time, typ models.SessionType) (*models.Session, error) {
	const q = `INSERT INTO sessions (id, webinar_id, scheduled_at, type)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (webinar_id, scheduled_at) DO UPDATE SET type = sessions.type
		RETURNING id, webinar_id, scheduled_at, type, created_at`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, webinarID, scheduledAt, typ).
		Scan(&s.ID, &s.WebinarID, &s.ScheduledAt, &s.Type, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT id, webinar_id, scheduled_at, type, created_at FROM sessions WHERE id = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.WebinarID, &s.ScheduledAt, &s.Type, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestPast returns the most recent session that already started, or nil if
// the webinar never ran. Used to anchor replay registrations.
func (r *Repository) LatestPast(ctx context.Context, webinarID uuid.UUID, now time.Time) (*models.Session, error) {
	const q = `SELECT id, webinar_id, scheduled_at, type, created_at FROM sessions
		WHERE webinar_id = $1 AND scheduled_at <= $2 ORDER BY scheduled_at DESC LIMIT 1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, webinarID, now).Scan(&s.ID, &s.WebinarID, &s.ScheduledAt, &s.Type, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
