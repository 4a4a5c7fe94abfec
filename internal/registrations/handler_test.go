package registrations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evergreen-webinar/backend/internal/models"
)

func TestIdentityRequired(t *testing.T) {
	gated := &models.ScheduleConfig{OnDemandEnabled: true, ReplayEnabled: true}
	ungated := &models.ScheduleConfig{
		OnDemandEnabled: true, OnDemandUngated: true,
		ReplayEnabled: true, ReplayUngated: true,
	}

	// Live modes always collect an identity.
	assert.True(t, identityRequired(ungated, models.RegScheduled))
	assert.True(t, identityRequired(ungated, models.RegJustInTime))

	assert.True(t, identityRequired(gated, models.RegOnDemand))
	assert.True(t, identityRequired(gated, models.RegReplay))

	assert.False(t, identityRequired(ungated, models.RegOnDemand))
	assert.False(t, identityRequired(ungated, models.RegReplay))
}
