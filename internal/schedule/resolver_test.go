package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-webinar/backend/internal/models"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNextOccurrenceRecurring(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	cfg := &models.ScheduleConfig{
		EventType:      models.EventRecurring,
		RecurringDays:  []int16{1}, // Monday
		RecurringTimes: []string{"18:00"},
	}

	// Wednesday 2026-03-04 noon NY: next Monday is 2026-03-09.
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, ny)
	at, ok := NextOccurrence(cfg, ny, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 18, 0, 0, 0, ny), at)

	// Monday 17:59: same day still qualifies.
	now = time.Date(2026, 3, 9, 17, 59, 0, 0, ny)
	at, ok = NextOccurrence(cfg, ny, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 18, 0, 0, 0, ny), at)

	// Monday 18:01: rolls to the following week.
	now = time.Date(2026, 3, 9, 18, 1, 0, 0, ny)
	at, ok = NextOccurrence(cfg, ny, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 16, 18, 0, 0, 0, ny), at)
}

func TestNextOccurrenceMultipleDaysAndTimes(t *testing.T) {
	utc := time.UTC
	cfg := &models.ScheduleConfig{
		EventType:      models.EventRecurring,
		RecurringDays:  []int16{2, 4}, // Tuesday, Thursday
		RecurringTimes: []string{"09:00", "20:00"},
	}

	// Tuesday 2026-03-03 10:00 UTC: 09:00 is gone, 20:00 same day is next.
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, utc)
	at, ok := NextOccurrence(cfg, utc, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 3, 20, 0, 0, 0, utc), at)
}

func TestNextOccurrenceSkipsBlackouts(t *testing.T) {
	utc := time.UTC
	cfg := &models.ScheduleConfig{
		EventType:      models.EventRecurring,
		RecurringDays:  []int16{1},
		RecurringTimes: []string{"18:00"},
		BlackoutDates:  []time.Time{time.Date(2026, 3, 9, 0, 0, 0, 0, utc)},
	}

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, utc)
	at, ok := NextOccurrence(cfg, utc, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 16, 18, 0, 0, 0, utc), at, "blacked-out Monday skipped")
}

func TestNextOccurrenceSkipsBlackoutsInWesternTimezone(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	cfg := &models.ScheduleConfig{
		EventType:      models.EventRecurring,
		RecurringDays:  []int16{1},
		RecurringTimes: []string{"18:00"},
		// DATE columns scan as midnight UTC regardless of the webinar timezone.
		BlackoutDates: []time.Time{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, ny)
	at, ok := NextOccurrence(cfg, ny, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 12, 18, 0, 0, 0, ny), at,
		"blackout on Jan 5 pushes the occurrence to Jan 12")
}

func TestNextOccurrenceSpecificDates(t *testing.T) {
	utc := time.UTC
	d1 := time.Date(2026, 2, 1, 15, 0, 0, 0, utc)
	d2 := time.Date(2026, 4, 1, 15, 0, 0, 0, utc)
	cfg := &models.ScheduleConfig{
		EventType:     models.EventSpecificDates,
		SpecificDates: []time.Time{d2, d1}, // unsorted on purpose
	}

	at, ok := NextOccurrence(cfg, utc, time.Date(2026, 1, 1, 0, 0, 0, 0, utc))
	require.True(t, ok)
	assert.Equal(t, d1, at)

	at, ok = NextOccurrence(cfg, utc, time.Date(2026, 3, 1, 0, 0, 0, 0, utc))
	require.True(t, ok)
	assert.Equal(t, d2, at)

	_, ok = NextOccurrence(cfg, utc, time.Date(2026, 5, 1, 0, 0, 0, 0, utc))
	assert.False(t, ok, "all dates past")
}

func TestNextOccurrenceOnDemandOnly(t *testing.T) {
	cfg := &models.ScheduleConfig{EventType: models.EventOnDemandOnly, OnDemandEnabled: true}
	_, ok := NextOccurrence(cfg, time.UTC, time.Now())
	assert.False(t, ok)
}

func TestJustInTimeStartRoundsUp(t *testing.T) {
	cfg := &models.ScheduleConfig{IntervalMinutes: 15}
	delay := 2 * time.Minute

	now := time.Date(2026, 3, 4, 12, 7, 30, 0, time.UTC)
	at := JustInTimeStart(cfg, now, delay)
	assert.Equal(t, time.Date(2026, 3, 4, 12, 15, 0, 0, time.UTC), at)

	// Landing exactly on a boundary stays there.
	now = time.Date(2026, 3, 4, 12, 13, 0, 0, time.UTC)
	at = JustInTimeStart(cfg, now, delay)
	assert.Equal(t, time.Date(2026, 3, 4, 12, 15, 0, 0, time.UTC), at)

	// The start is always at least delay away.
	now = time.Date(2026, 3, 4, 12, 14, 0, 0, time.UTC)
	at = JustInTimeStart(cfg, now, delay)
	assert.Equal(t, time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC), at)
	assert.False(t, at.Before(now.Add(delay)))
}

func TestJustInTimeStartDefaultInterval(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 1, 0, time.UTC)
	at := JustInTimeStart(nil, now, 2*time.Minute)
	assert.Equal(t, time.Date(2026, 3, 4, 12, 15, 0, 0, time.UTC), at)
}

func TestUpcoming(t *testing.T) {
	utc := time.UTC
	cfg := &models.ScheduleConfig{
		EventType:         models.EventRecurring,
		RecurringDays:     []int16{1},
		RecurringTimes:    []string{"18:00"},
		MaxSessionsToShow: 3,
	}

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, utc)
	got := Upcoming(cfg, utc, now, 10)
	require.Len(t, got, 3, "capped by max_sessions_to_show")
	assert.Equal(t, time.Date(2026, 3, 9, 18, 0, 0, 0, utc), got[0])
	assert.Equal(t, time.Date(2026, 3, 16, 18, 0, 0, 0, utc), got[1])
	assert.Equal(t, time.Date(2026, 3, 23, 18, 0, 0, 0, utc), got[2])
}

func TestUpcomingEmptyForOnDemand(t *testing.T) {
	cfg := &models.ScheduleConfig{EventType: models.EventOnDemandOnly}
	assert.Empty(t, Upcoming(cfg, time.UTC, time.Now(), 5))
}
