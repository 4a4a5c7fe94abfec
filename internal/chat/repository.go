package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-webinar/backend/internal/models"
)

const messageColumns = `id, webinar_id, registration_id, sender_name, message,
	is_simulated, is_from_moderator, is_hidden, appears_at, created_at`

// Repository handles chat message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := row.Scan(&m.ID, &m.WebinarID, &m.RegistrationID, &m.SenderName, &m.Message,
		&m.IsSimulated, &m.IsFromModerator, &m.IsHidden, &m.AppearsAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertReal persists a real viewer or moderator message.
func (r *Repository) InsertReal(ctx context.Context, webinarID uuid.UUID, registrationID *uuid.UUID, senderName, message string, fromModerator bool) (*models.ChatMessage, error) {
	const q = `INSERT INTO chat_messages (webinar_id, registration_id, sender_name, message, is_simulated, is_from_moderator)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING ` + messageColumns
	return scanMessage(r.pool.QueryRow(ctx, q, webinarID, registrationID, senderName, message, fromModerator))
}

// InsertSimulated adds a scripted message that appears at the given offset
// (seconds into the video) in every session.
func (r *Repository) InsertSimulated(ctx context.Context, webinarID uuid.UUID, senderName, message string, appearsAt int) (*models.ChatMessage, error) {
	const q = `INSERT INTO chat_messages (webinar_id, sender_name, message, is_simulated, appears_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING ` + messageColumns
	return scanMessage(r.pool.QueryRow(ctx, q, webinarID, senderName, message, appearsAt))
}

// ListSimulatedUpTo returns visible scripted messages with appears_at within
// the given playback position, ordered by their offset.
func (r *Repository) ListSimulatedUpTo(ctx context.Context, webinarID uuid.UUID, position int) ([]*models.ChatMessage, error) {
	const q = `SELECT ` + messageColumns + ` FROM chat_messages
		WHERE webinar_id = $1 AND is_simulated = TRUE AND is_hidden = FALSE AND appears_at <= $2
		ORDER BY appears_at ASC`
	return r.listMessages(ctx, q, webinarID, position)
}

// ListScript returns all scripted messages for a webinar, hidden included,
// for the authoring UI.
func (r *Repository) ListScript(ctx context.Context, webinarID uuid.UUID) ([]*models.ChatMessage, error) {
	const q = `SELECT ` + messageColumns + ` FROM chat_messages
		WHERE webinar_id = $1 AND is_simulated = TRUE
		ORDER BY appears_at ASC`
	return r.listMessages(ctx, q, webinarID)
}

// ListRealSince returns visible real messages created after the given time.
// A zero since returns the most recent window of real messages.
func (r *Repository) ListRealSince(ctx context.Context, webinarID uuid.UUID, since time.Time, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + ` FROM chat_messages
			WHERE webinar_id = $1 AND is_simulated = FALSE AND is_hidden = FALSE AND created_at > $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent ORDER BY created_at ASC`
	return r.listMessages(ctx, q, webinarID, since, limit)
}

// SetHidden hides or unhides a message. Hidden messages stay out of viewer
// lists but remain in the moderation record.
func (r *Repository) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	const q = `UPDATE chat_messages SET is_hidden = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, hidden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteSimulated removes a scripted message. Real messages are hidden, not
// deleted.
func (r *Repository) DeleteSimulated(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM chat_messages WHERE id = $1 AND is_simulated = TRUE`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) listMessages(ctx context.Context, q string, args ...interface{}) ([]*models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*models.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
