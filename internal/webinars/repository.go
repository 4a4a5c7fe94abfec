package webinars

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Repository handles webinar and schedule-config persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const webinarColumns = `id, slug, title, description, video_url, duration_seconds, chat_enabled,
	completion_percent, timezone, status, created_by, created_at, updated_at`

func scanWebinar(row pgx.Row) (*models.Webinar, error) {
	var w models.Webinar
	err := row.Scan(&w.ID, &w.Slug, &w.Title, &w.Description, &w.VideoURL, &w.DurationSeconds,
		&w.ChatEnabled, &w.CompletionPercent, &w.Timezone, &w.Status, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a new webinar.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	const q = `INSERT INTO webinars (id, slug, title, description, video_url, duration_seconds,
			chat_enabled, completion_percent, timezone, status, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, w.Slug, w.Title, w.Description, w.VideoURL, w.DurationSeconds,
		w.ChatEnabled, w.CompletionPercent, w.Timezone, w.Status, w.CreatedBy).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

// GetByID returns a webinar by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	return scanWebinar(r.pool.QueryRow(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE id = $1`, id))
}

// GetBySlug returns a webinar by slug, or nil if none exists.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Webinar, error) {
	w, err := scanWebinar(r.pool.QueryRow(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

// List returns all webinars, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Webinar, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+webinarColumns+` FROM webinars ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

// Update rewrites a webinar's editable fields. Sessions already created keep
// their original timestamps; edits only affect future resolution.
func (r *Repository) Update(ctx context.Context, w *models.Webinar) error {
	const q = `UPDATE webinars SET title = $1, description = $2, video_url = $3, duration_seconds = $4,
		chat_enabled = $5, completion_percent = $6, timezone = $7, status = $8, updated_at = NOW()
		WHERE id = $9`
	_, err := r.pool.Exec(ctx, q, w.Title, w.Description, w.VideoURL, w.DurationSeconds,
		w.ChatEnabled, w.CompletionPercent, w.Timezone, w.Status, w.ID)
	return err
}

// UpsertScheduleConfig stores the one-per-webinar schedule definition.
func (r *Repository) UpsertScheduleConfig(ctx context.Context, cfg *models.ScheduleConfig) error {
	const q = `INSERT INTO schedule_configs (webinar_id, event_type, recurring_days, recurring_times,
			specific_dates, blackout_dates, on_demand_enabled, on_demand_ungated, just_in_time_enabled,
			interval_minutes, replay_enabled, replay_ungated, replay_expires_after_days, max_sessions_to_show)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (webinar_id) DO UPDATE SET event_type = EXCLUDED.event_type,
			recurring_days = EXCLUDED.recurring_days, recurring_times = EXCLUDED.recurring_times,
			specific_dates = EXCLUDED.specific_dates, blackout_dates = EXCLUDED.blackout_dates,
			on_demand_enabled = EXCLUDED.on_demand_enabled, on_demand_ungated = EXCLUDED.on_demand_ungated,
			just_in_time_enabled = EXCLUDED.just_in_time_enabled, interval_minutes = EXCLUDED.interval_minutes,
			replay_enabled = EXCLUDED.replay_enabled, replay_ungated = EXCLUDED.replay_ungated,
			replay_expires_after_days = EXCLUDED.replay_expires_after_days,
			max_sessions_to_show = EXCLUDED.max_sessions_to_show, updated_at = NOW()
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, cfg.WebinarID, cfg.EventType, cfg.RecurringDays, cfg.RecurringTimes,
		cfg.SpecificDates, cfg.BlackoutDates, cfg.OnDemandEnabled, cfg.OnDemandUngated, cfg.JustInTimeEnabled,
		cfg.IntervalMinutes, cfg.ReplayEnabled, cfg.ReplayUngated, cfg.ReplayExpiresAfterDays, cfg.MaxSessionsToShow).
		Scan(&cfg.UpdatedAt)
}

// GetScheduleConfig returns the schedule config for a webinar, or nil if the
// webinar has none (pure on-demand webinars created without a schedule).
func (r *Repository) GetScheduleConfig(ctx context.Context, webinarID uuid.UUID) (*models.ScheduleConfig, error) {
	const q = `SELECT webinar_id, event_type, recurring_days, recurring_times, specific_dates, blackout_dates,
		on_demand_enabled, on_demand_ungated, just_in_time_enabled, interval_minutes,
		replay_enabled, replay_ungated, replay_expires_after_days, max_sessions_to_show, updated_at
		FROM schedule_configs WHERE webinar_id = $1`
	var cfg models.ScheduleConfig
	err := r.pool.QueryRow(ctx, q, webinarID).Scan(&cfg.WebinarID, &cfg.EventType, &cfg.RecurringDays,
		&cfg.RecurringTimes, &cfg.SpecificDates, &cfg.BlackoutDates, &cfg.OnDemandEnabled, &cfg.OnDemandUngated,
		&cfg.JustInTimeEnabled, &cfg.IntervalMinutes, &cfg.ReplayEnabled, &cfg.ReplayUngated,
		&cfg.ReplayExpiresAfterDays, &cfg.MaxSessionsToShow, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
