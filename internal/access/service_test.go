package access

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-webinar/backend/internal/models"
)

const earlyAccess = 5 * time.Minute

func gateFixtures() (*models.Webinar, *models.ScheduleConfig, *models.Session) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	w := &models.Webinar{DurationSeconds: 3600}
	cfg := &models.ScheduleConfig{ReplayEnabled: true}
	return w, cfg, &models.Session{ScheduledAt: start}
}

func TestGateWaitingRoomBoundary(t *testing.T) {
	w, cfg, session := gateFixtures()
	start := session.ScheduledAt

	// 5m1s before start: still waiting.
	err := Gate(w, cfg, models.RegScheduled, session, earlyAccess, start.Add(-5*time.Minute-time.Second))
	var waiting *WaitingRoomError
	require.ErrorAs(t, err, &waiting)
	assert.Equal(t, start, waiting.StartsAt)

	// Exactly 5m before start: door opens.
	assert.NoError(t, Gate(w, cfg, models.RegScheduled, session, earlyAccess, start.Add(-5*time.Minute)))

	// After start: open.
	assert.NoError(t, Gate(w, cfg, models.RegJustInTime, session, earlyAccess, start.Add(time.Minute)))
}

func TestGateReplayDisabled(t *testing.T) {
	w, cfg, session := gateFixtures()
	cfg.ReplayEnabled = false

	err := Gate(w, cfg, models.RegReplay, session, earlyAccess, session.ScheduledAt.Add(24*time.Hour))
	assert.True(t, errors.Is(err, ErrReplayDisabled))

	err = Gate(w, nil, models.RegReplay, session, earlyAccess, time.Now())
	assert.True(t, errors.Is(err, ErrReplayDisabled), "missing schedule config means no replay")
}

func TestGateReplayExpiry(t *testing.T) {
	w, cfg, session := gateFixtures()
	days := 7
	cfg.ReplayExpiresAfterDays = &days
	sessionEnd := session.ScheduledAt.Add(time.Hour)
	expiry := sessionEnd.Add(7 * 24 * time.Hour)

	// One day before expiry: fine.
	assert.NoError(t, Gate(w, cfg, models.RegReplay, session, earlyAccess, expiry.Add(-24*time.Hour)))

	// Exactly at expiry: still fine (expires strictly after).
	assert.NoError(t, Gate(w, cfg, models.RegReplay, session, earlyAccess, expiry))

	// One day past expiry: gone.
	err := Gate(w, cfg, models.RegReplay, session, earlyAccess, expiry.Add(24*time.Hour))
	var expired *ReplayExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, expiry, expired.ExpiredAt)
}

func TestGateReplayNeverExpiresWithoutWindow(t *testing.T) {
	w, cfg, session := gateFixtures()
	// nil ReplayExpiresAfterDays: replay works years later.
	assert.NoError(t, Gate(w, cfg, models.RegReplay, session, earlyAccess, session.ScheduledAt.AddDate(3, 0, 0)))
}

func TestClassifyLookup(t *testing.T) {
	webinarID := uuid.New()

	// Unknown token is the viewer's fault.
	_, err := classifyLookup(nil, webinarID, pgx.ErrNoRows)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	// A token for another webinar is too.
	_, err = classifyLookup(&models.Registration{WebinarID: uuid.New()}, webinarID, nil)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	// A failed lookup is not: the outage must not surface as 401.
	_, err = classifyLookup(nil, webinarID, errors.New("connection refused"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidToken))

	reg, err := classifyLookup(&models.Registration{WebinarID: webinarID}, webinarID, nil)
	require.NoError(t, err)
	assert.Equal(t, webinarID, reg.WebinarID)
}

func TestGateOnDemandNeverGated(t *testing.T) {
	w, cfg, _ := gateFixtures()
	assert.NoError(t, Gate(w, cfg, models.RegOnDemand, nil, earlyAccess, time.Now()))
}
