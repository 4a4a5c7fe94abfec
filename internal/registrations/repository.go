package registrations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a registration and fills in generated fields.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (webinar_id, session_id, session_type, email, full_name, access_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, watch_progress, max_video_position, created_at, updated_at`
	return r.pool.QueryRow(ctx, q,
		reg.WebinarID, reg.SessionID, string(reg.SessionType), reg.Email, reg.FullName, reg.AccessToken,
	).Scan(&reg.ID, &reg.WatchProgress, &reg.MaxVideoPosition, &reg.CreatedAt, &reg.UpdatedAt)
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT id, webinar_id, session_id, session_type, email, full_name, access_token,
			watch_progress, max_video_position, joined_at, completed_at, created_at, updated_at
		FROM registrations WHERE id = $1`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, id).Scan(&reg.ID, &reg.WebinarID, &reg.SessionID, &reg.SessionType,
		&reg.Email, &reg.FullName, &reg.AccessToken, &reg.WatchProgress, &reg.MaxVideoPosition,
		&reg.JoinedAt, &reg.CompletedAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpdateProgress records the viewer's reported position. max_video_position
// only moves forward; watch_progress tracks the last report so a paused
// on-demand viewer resumes where they left off.
func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, position int) error {
	const q = `UPDATE registrations
		SET watch_progress = $2,
			max_video_position = GREATEST(max_video_position, $2),
			updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, position)
	return err
}

// MarkCompleted stamps completion once; later reports never move it.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const q = `UPDATE registrations SET completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND completed_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByWebinar returns registrations for the admin view, newest first.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID, limit, offset int) ([]models.Registration, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT id, webinar_id, session_id, session_type, email, full_name, access_token,
			watch_progress, max_video_position, joined_at, completed_at, created_at, updated_at
		FROM registrations WHERE webinar_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, webinarID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.WebinarID, &reg.SessionID, &reg.SessionType,
			&reg.Email, &reg.FullName, &reg.AccessToken, &reg.WatchProgress, &reg.MaxVideoPosition,
			&reg.JoinedAt, &reg.CompletedAt, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}
