package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads engagement facts and writes analytics events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEvent appends one engagement fact. Called by the background worker.
func (r *Repository) InsertEvent(ctx context.Context, webinarID uuid.UUID, registrationID *uuid.UUID, eventType string, metadata json.RawMessage, occurredAt time.Time) error {
	const q = `INSERT INTO analytics_events (webinar_id, registration_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, q, webinarID, registrationID, eventType, metadata, occurredAt)
	return err
}

// FetchRegistrationFacts loads one row per registration with its funnel
// booleans resolved in SQL. Engagement means any interaction event or chat
// message; conversion means a click on a CTA or special offer.
func (r *Repository) FetchRegistrationFacts(ctx context.Context, webinarID uuid.UUID) ([]RegistrationFacts, error) {
	const q = `SELECT
			r.id,
			r.session_type,
			r.created_at,
			r.joined_at IS NOT NULL,
			EXISTS (SELECT 1 FROM interaction_events ie WHERE ie.registration_id = r.id)
				OR EXISTS (SELECT 1 FROM chat_messages cm WHERE cm.registration_id = r.id),
			r.completed_at IS NOT NULL,
			EXISTS (
				SELECT 1 FROM interaction_events ie
				JOIN interactions i ON i.id = ie.interaction_id
				WHERE ie.registration_id = r.id
					AND ie.event_type = 'clicked'
					AND i.type IN ('cta', 'special_offer')
			),
			r.max_video_position
		FROM registrations r
		WHERE r.webinar_id = $1`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var out []RegistrationFacts
	for rows.Next() {
		var f RegistrationFacts
		if err := rows.Scan(&f.RegistrationID, &f.SessionType, &f.RegisteredAt,
			&f.Joined, &f.Engaged, &f.Completed, &f.Converted, &f.MaxVideoPosition); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SimulatedChatByMinute counts scripted messages per minute of video.
func (r *Repository) SimulatedChatByMinute(ctx context.Context, webinarID uuid.UUID) (map[int]int, error) {
	const q = `SELECT appears_at / 60 AS minute, COUNT(*)
		FROM chat_messages
		WHERE webinar_id = $1 AND is_simulated = TRUE AND is_hidden = FALSE
		GROUP BY minute`
	return r.countByMinute(ctx, q, webinarID)
}

// RealChatByMinute counts real viewer messages per minute relative to the
// session start the sender was registered for. Messages without a session
// anchor (on-demand viewers, moderators) have no comparable offset and are
// excluded from the timeline.
func (r *Repository) RealChatByMinute(ctx context.Context, webinarID uuid.UUID) (map[int]int, error) {
	const q = `SELECT FLOOR(EXTRACT(EPOCH FROM (cm.created_at - s.scheduled_at)) / 60)::INT AS minute, COUNT(*)
		FROM chat_messages cm
		JOIN registrations r ON r.id = cm.registration_id
		JOIN sessions s ON s.id = r.session_id
		WHERE cm.webinar_id = $1 AND cm.is_simulated = FALSE AND cm.is_hidden = FALSE
			AND cm.created_at >= s.scheduled_at
		GROUP BY minute`
	return r.countByMinute(ctx, q, webinarID)
}

// SenderStat is one sender's real-message count.
type SenderStat struct {
	SenderName string `json:"sender_name"`
	Messages   int    `json:"messages"`
}

// ChatSenderStats returns the distinct real-chatter count and the busiest
// senders for a webinar.
func (r *Repository) ChatSenderStats(ctx context.Context, webinarID uuid.UUID, topN int) (uniqueChatters int, top []SenderStat, err error) {
	if topN <= 0 {
		topN = 5
	}
	const countQ = `SELECT COUNT(DISTINCT registration_id) FROM chat_messages
		WHERE webinar_id = $1 AND is_simulated = FALSE AND registration_id IS NOT NULL`
	if err = r.pool.QueryRow(ctx, countQ, webinarID).Scan(&uniqueChatters); err != nil {
		return 0, nil, err
	}

	const topQ = `SELECT sender_name, COUNT(*) AS n FROM chat_messages
		WHERE webinar_id = $1 AND is_simulated = FALSE AND is_hidden = FALSE
		GROUP BY sender_name ORDER BY n DESC, sender_name ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, topQ, webinarID, topN)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s SenderStat
		if err := rows.Scan(&s.SenderName, &s.Messages); err != nil {
			return 0, nil, err
		}
		top = append(top, s)
	}
	return uniqueChatters, top, rows.Err()
}

// EventCounts returns analytics event totals by type for a webinar.
func (r *Repository) EventCounts(ctx context.Context, webinarID uuid.UUID) (map[string]int, error) {
	const q = `SELECT event_type, COUNT(*) FROM analytics_events WHERE webinar_id = $1 GROUP BY event_type`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

func (r *Repository) countByMinute(ctx context.Context, q string, webinarID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var minute, n int
		if err := rows.Scan(&minute, &n); err != nil {
			return nil, err
		}
		if minute >= 0 {
			out[minute] = n
		}
	}
	return out, rows.Err()
}
