package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Repository handles token-keyed registration lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an access repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByToken returns the registration owning the token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	const q = `SELECT id, webinar_id, session_id, session_type, email, full_name, access_token,
		watch_progress, max_video_position, joined_at, completed_at, created_at, updated_at
		FROM registrations WHERE access_token = $1`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, token).Scan(&reg.ID, &reg.WebinarID, &reg.SessionID, &reg.SessionType,
		&reg.Email, &reg.FullName, &reg.AccessToken, &reg.WatchProgress, &reg.MaxVideoPosition,
		&reg.JoinedAt, &reg.CompletedAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// TokenExists reports whether a token is already issued.
func (r *Repository) TokenExists(ctx context.Context, token string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM registrations WHERE access_token = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, token).Scan(&exists)
	return exists, err
}

// MarkJoined sets joined_at once. Safe under concurrent validation calls for
// the same token: the guard makes the write idempotent.
func (r *Repository) MarkJoined(ctx context.Context, registrationID uuid.UUID) error {
	const q = `UPDATE registrations SET joined_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND joined_at IS NULL`
	_, err := r.pool.Exec(ctx, q, registrationID)
	return err
}
