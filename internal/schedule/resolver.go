package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/evergreen-webinar/backend/internal/models"
)

// maxBlackoutSkips bounds the recurring search so a fully blacked-out
// calendar cannot loop forever.
const maxBlackoutSkips = 52

// Resolver turns a schedule configuration into concrete session instances.
// All methods take now explicitly; the resolver never reads the wall clock.
type Resolver struct {
	repo     *Repository
	jitDelay time.Duration
}

// NewResolver creates a schedule resolver. jitDelay is the minimum lead time
// before a just-in-time session starts.
func NewResolver(repo *Repository, jitDelay time.Duration) *Resolver {
	return &Resolver{repo: repo, jitDelay: jitDelay}
}

// NextScheduled resolves the next wall-clock session for the webinar, creating
// the session row idempotently (keyed by webinar_id + scheduled_at). Returns
// nil when the configuration yields no future occurrence; callers fall back to
// replay or on-demand depending on the config flags.
func (r *Resolver) NextScheduled(ctx context.Context, webinar *models.Webinar, cfg *models.ScheduleConfig, now time.Time) (*models.Session, error) {
	at, ok := NextOccurrence(cfg, webinar.Location(), now)
	if !ok {
		return nil, nil
	}
	s, err := r.repo.GetOrCreate(ctx, webinar.ID, at, models.SessionScheduled)
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}
	return s, nil
}

// JustInTime synthesizes a session starting shortly after now, rounded up to
// the configured interval boundary. Registrants landing in the same boundary
// share the row so they see one timeline.
func (r *Resolver) JustInTime(ctx context.Context, webinarID uuid.UUID, cfg *models.ScheduleConfig, now time.Time) (*models.Session, error) {
	at := JustInTimeStart(cfg, now, r.jitDelay)
	s, err := r.repo.GetOrCreate(ctx, webinarID, at, models.SessionJustInTime)
	if err != nil {
		return nil, fmt.Errorf("get or create just-in-time session: %w", err)
	}
	return s, nil
}

// NextOccurrence computes the next wall-clock start >= now for the config in
// the given timezone. Pure. The second return is false when no future
// occurrence exists (on-demand-only configs, or all dates in the past).
func NextOccurrence(cfg *models.ScheduleConfig, loc *time.Location, now time.Time) (time.Time, bool) {
	if cfg == nil || loc == nil {
		return time.Time{}, false
	}
	switch cfg.EventType {
	case models.EventRecurring:
		return nextRecurring(cfg, loc, now)
	case models.EventOneTime, models.EventSpecificDates:
		return nextSpecific(cfg.SpecificDates, now)
	default: // on_demand_only
		return time.Time{}, false
	}
}

// JustInTimeStart returns now + delay rounded up to the next interval_minutes
// boundary. Pure.
func JustInTimeStart(cfg *models.ScheduleConfig, now time.Time, delay time.Duration) time.Time {
	interval := 15
	if cfg != nil && cfg.IntervalMinutes > 0 {
		interval = cfg.IntervalMinutes
	}
	step := time.Duration(interval) * time.Minute
	t := now.Add(delay)
	rounded := t.Truncate(step)
	if rounded.Before(t) {
		rounded = rounded.Add(step)
	}
	return rounded
}

// Upcoming lists up to max future occurrences for the registration page.
// Pure projection; no session rows are created.
func Upcoming(cfg *models.ScheduleConfig, loc *time.Location, now time.Time, max int) []time.Time {
	if cfg == nil || max <= 0 {
		return nil
	}
	if cfg.MaxSessionsToShow > 0 && cfg.MaxSessionsToShow < max {
		max = cfg.MaxSessionsToShow
	}
	var out []time.Time
	cursor := now
	for len(out) < max {
		at, ok := NextOccurrence(cfg, loc, cursor)
		if !ok {
			break
		}
		out = append(out, at)
		cursor = at.Add(time.Minute)
	}
	return out
}

func nextRecurring(cfg *models.ScheduleConfig, loc *time.Location, now time.Time) (time.Time, bool) {
	if len(cfg.RecurringDays) == 0 || len(cfg.RecurringTimes) == 0 {
		return time.Time{}, false
	}
	local := now.In(loc)
	var best time.Time
	for _, day := range cfg.RecurringDays {
		for _, hhmm := range cfg.RecurringTimes {
			hour, minute, err := parseTimeOfDay(hhmm)
			if err != nil {
				continue
			}
			daysAhead := (int(day) - int(local.Weekday()) + 7) % 7
			candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc).
				AddDate(0, 0, daysAhead)
			if candidate.Before(now) {
				candidate = candidate.AddDate(0, 0, 7)
			}
			for skips := 0; isBlackout(cfg.BlackoutDates, candidate) && skips < maxBlackoutSkips; skips++ {
				candidate = candidate.AddDate(0, 0, 7)
			}
			if isBlackout(cfg.BlackoutDates, candidate) {
				continue
			}
			if best.IsZero() || candidate.Before(best) {
				best = candidate
			}
		}
	}
	return best, !best.IsZero()
}

func nextSpecific(dates []time.Time, now time.Time) (time.Time, bool) {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	for _, d := range sorted {
		if !d.Before(now) {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseTimeOfDay(hhmm string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0, fmt.Errorf("parse time of day %q: %w", hhmm, err)
	}
	return t.Hour(), t.Minute(), nil
}

// isBlackout compares calendar dates. Blackouts are DATE values and scan out
// of Postgres as midnight UTC, so their own Date() already is the stored
// calendar date; converting them into the candidate's location would shift
// western timezones to the previous day.
func isBlackout(blackouts []time.Time, candidate time.Time) bool {
	cy, cm, cd := candidate.Date()
	for _, b := range blackouts {
		by, bm, bd := b.Date()
		if cy == by && cm == bm && cd == bd {
			return true
		}
	}
	return false
}
