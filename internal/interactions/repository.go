package interactions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Repository handles interaction persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an interactions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const interactionColumns = `id, webinar_id, type, triggers_at, duration_seconds, title, content,
	pause_video, required, show_on_replay, position, enabled, view_count, action_count, created_at, updated_at`

func scanInteraction(row interface{ Scan(...any) error }) (*models.Interaction, error) {
	var in models.Interaction
	err := row.Scan(&in.ID, &in.WebinarID, &in.Type, &in.TriggersAt, &in.DurationSeconds, &in.Title,
		&in.Content, &in.PauseVideo, &in.Required, &in.ShowOnReplay, &in.Position, &in.Enabled,
		&in.ViewCount, &in.ActionCount, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Create inserts an interaction.
func (r *Repository) Create(ctx context.Context, in *models.Interaction) error {
	const q = `INSERT INTO interactions (id, webinar_id, type, triggers_at, duration_seconds, title, content,
			pause_video, required, show_on_replay, position, enabled)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, view_count, action_count, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, in.WebinarID, in.Type, in.TriggersAt, in.DurationSeconds, in.Title,
		in.Content, in.PauseVideo, in.Required, in.ShowOnReplay, in.Position, in.Enabled).
		Scan(&in.ID, &in.ViewCount, &in.ActionCount, &in.CreatedAt, &in.UpdatedAt)
}

// Update rewrites an interaction's editable fields.
func (r *Repository) Update(ctx context.Context, in *models.Interaction) error {
	const q = `UPDATE interactions SET type = $1, triggers_at = $2, duration_seconds = $3, title = $4,
		content = $5, pause_video = $6, required = $7, show_on_replay = $8, position = $9, enabled = $10,
		updated_at = NOW() WHERE id = $11`
	_, err := r.pool.Exec(ctx, q, in.Type, in.TriggersAt, in.DurationSeconds, in.Title, in.Content,
		in.PauseVideo, in.Required, in.ShowOnReplay, in.Position, in.Enabled, in.ID)
	return err
}

// Delete removes an interaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM interactions WHERE id = $1`, id)
	return err
}

// GetByID returns an interaction by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	return scanInteraction(r.pool.QueryRow(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE id = $1`, id))
}

// ListByWebinar returns all interactions for a webinar ordered by offset
// (admin view; includes disabled ones).
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.Interaction, error) {
	return r.list(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE webinar_id = $1 ORDER BY triggers_at, created_at`, webinarID)
}

// ListEnabled returns enabled interactions ordered by offset. When replay is
// true, interactions flagged show_on_replay=false are filtered out.
func (r *Repository) ListEnabled(ctx context.Context, webinarID uuid.UUID, replay bool) ([]models.Interaction, error) {
	q := `SELECT ` + interactionColumns + ` FROM interactions WHERE webinar_id = $1 AND enabled`
	if replay {
		q += ` AND show_on_replay`
	}
	q += ` ORDER BY triggers_at, created_at`
	return r.list(ctx, q, webinarID)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.Interaction, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *in)
	}
	return list, rows.Err()
}

// InsertEvent appends an engagement fact. The event log is append-only.
func (r *Repository) InsertEvent(ctx context.Context, ev *models.InteractionEvent) error {
	const q = `INSERT INTO interaction_events (id, interaction_id, registration_id, event_type, metadata)
		VALUES (gen_random_uuid(), $1, $2, $3, $4) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, ev.InteractionID, ev.RegistrationID, ev.EventType, ev.Metadata).
		Scan(&ev.ID, &ev.CreatedAt)
}

// MarkViewed records the UNSEEN -> VIEWED transition. Returns true only for
// the first view of the pair, so view_count increments are idempotent.
func (r *Repository) MarkViewed(ctx context.Context, interactionID, registrationID uuid.UUID) (bool, error) {
	const q = `INSERT INTO interaction_states (interaction_id, registration_id, state)
		VALUES ($1, $2, 'viewed') ON CONFLICT (interaction_id, registration_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, interactionID, registrationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkResponded moves the pair to the terminal RESPONDED state.
func (r *Repository) MarkResponded(ctx context.Context, interactionID, registrationID uuid.UUID) error {
	const q = `INSERT INTO interaction_states (interaction_id, registration_id, state)
		VALUES ($1, $2, 'responded')
		ON CONFLICT (interaction_id, registration_id) DO UPDATE SET state = 'responded', updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, interactionID, registrationID)
	return err
}

// IncrementViewCount bumps the denormalized view counter.
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE interactions SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

// IncrementActionCount bumps the denormalized action counter.
func (r *Repository) IncrementActionCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE interactions SET action_count = action_count + 1 WHERE id = $1`, id)
	return err
}

// UpsertResponse stores the current response for a pair, last-write-wins.
// History stays in interaction_events.
func (r *Repository) UpsertResponse(ctx context.Context, resp *models.PollResponse) error {
	const q = `INSERT INTO poll_responses (interaction_id, registration_id, selected_options, text_response, rating)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (interaction_id, registration_id) DO UPDATE
		SET selected_options = EXCLUDED.selected_options, text_response = EXCLUDED.text_response,
			rating = EXCLUDED.rating, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, resp.InteractionID, resp.RegistrationID, resp.SelectedOptions, resp.TextResponse, resp.Rating)
	return err
}

// SelectedOptionSets returns each response's selected option indexes, one
// slice per responding registration. Aggregation happens in Go so the
// counting rules are shared between poll and quiz results.
func (r *Repository) SelectedOptionSets(ctx context.Context, interactionID uuid.UUID) ([][]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT selected_options FROM poll_responses
		WHERE interaction_id = $1 AND selected_options IS NOT NULL`, interactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sets [][]int64
	for rows.Next() {
		var set []int64
		if err := rows.Scan(&set); err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// RatingCounts returns the 1..3 rating histogram.
func (r *Repository) RatingCounts(ctx context.Context, interactionID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT rating, COUNT(*) FROM poll_responses
		WHERE interaction_id = $1 AND rating IS NOT NULL GROUP BY rating`, interactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int]int)
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, err
		}
		counts[rating] = n
	}
	return counts, rows.Err()
}

// TextResponses returns free-text answers for a question interaction (admin
// review).
func (r *Repository) TextResponses(ctx context.Context, interactionID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT text_response FROM poll_responses
		WHERE interaction_id = $1 AND text_response IS NOT NULL ORDER BY updated_at`, interactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ResponseCount returns how many registrations responded (contact forms,
// questions).
func (r *Repository) ResponseCount(ctx context.Context, interactionID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM poll_responses WHERE interaction_id = $1`, interactionID).Scan(&n)
	return n, err
}
