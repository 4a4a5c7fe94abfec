package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evergreen-webinar/backend/internal/models"
)

const duration = 3600 // one hour video

func session(start time.Time) *models.Session {
	return &models.Session{ScheduledAt: start}
}

func TestComputeSimulatedLivePosition(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	now := start.Add(17 * time.Minute)

	pb := Compute(models.RegScheduled, session(start), 0, duration, now)
	assert.Equal(t, ModeSimulatedLive, pb.Mode)
	assert.Equal(t, 17*60, pb.StartPosition)
	assert.False(t, pb.AllowSeeking)
	assert.False(t, pb.Ended)
}

func TestComputeSimulatedLiveBeforeStartClampsToZero(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	pb := Compute(models.RegScheduled, session(start), 0, duration, start.Add(-3*time.Minute))
	assert.Equal(t, 0, pb.StartPosition)
	assert.False(t, pb.Ended)
}

func TestComputeSimulatedLiveEnded(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	pb := Compute(models.RegJustInTime, session(start), 0, duration, start.Add(2*time.Hour))
	assert.Equal(t, ModeSimulatedLive, pb.Mode)
	assert.True(t, pb.Ended)
}

func TestComputeIgnoresClientProgressForSimulatedLive(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	now := start.Add(10 * time.Minute)
	// Stored progress must not move a simulated-live viewer.
	pb := Compute(models.RegScheduled, session(start), 3000, duration, now)
	assert.Equal(t, 600, pb.StartPosition)
}

func TestComputeOnDemandResumes(t *testing.T) {
	pb := Compute(models.RegOnDemand, nil, 1234, duration, time.Now())
	assert.Equal(t, ModeOnDemand, pb.Mode)
	assert.True(t, pb.AllowSeeking)
	assert.Equal(t, 1234, pb.StartPosition)
}

func TestComputeReplayClampsProgress(t *testing.T) {
	pb := Compute(models.RegReplay, nil, duration+500, duration, time.Now())
	assert.Equal(t, ModeReplay, pb.Mode)
	assert.Equal(t, duration, pb.StartPosition)

	pb = Compute(models.RegReplay, nil, -10, duration, time.Now())
	assert.Equal(t, 0, pb.StartPosition)
}

func TestComputeMissingSessionDegradesToOnDemand(t *testing.T) {
	pb := Compute(models.RegScheduled, nil, 300, duration, time.Now())
	assert.Equal(t, ModeOnDemand, pb.Mode)
	assert.True(t, pb.AllowSeeking)
	assert.Equal(t, 300, pb.StartPosition)
}

func TestSameInstantSamePosition(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	now := start.Add(42 * time.Minute)
	a := Compute(models.RegScheduled, session(start), 0, duration, now)
	b := Compute(models.RegScheduled, session(start), 900, duration, now)
	assert.Equal(t, a.StartPosition, b.StartPosition, "all viewers at one instant share a position")
}
