// Package playback derives a viewer's playback position from wall-clock time.
//
// Simulated-live positions are recomputed from the session start on every
// access and never stored, so every viewer opening the page at the same
// instant sees the same position without any server-side broadcast.
package playback

import (
	"time"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Mode is how the client should drive the player.
type Mode string

const (
	ModeSimulatedLive Mode = "simulated_live"
	ModeOnDemand      Mode = "on_demand"
	ModeReplay        Mode = "replay"
)

// Playback is the result of position calculation for one access.
type Playback struct {
	Mode          Mode `json:"mode"`
	AllowSeeking  bool `json:"allow_seeking"`
	StartPosition int  `json:"start_position"` // seconds
	LastPosition  int  `json:"last_position"`  // furthest stored progress, informational
	Ended         bool `json:"ended"`          // simulated-live only: wall clock is past the video end
}

// Compute derives the playback state for a registration. Pure: now is the
// server clock, injected by the caller. Client-reported positions never
// influence mode selection.
func Compute(regType models.RegistrationType, session *models.Session, watchProgress, durationSeconds int, now time.Time) Playback {
	last := clampProgress(watchProgress, durationSeconds)

	switch regType {
	case models.RegOnDemand:
		return Playback{Mode: ModeOnDemand, AllowSeeking: true, StartPosition: last, LastPosition: last}
	case models.RegReplay:
		return Playback{Mode: ModeReplay, AllowSeeking: true, StartPosition: last, LastPosition: last}
	}

	// Scheduled / just-in-time. A missing session row means the registration
	// predates a schedule change; degrade to on-demand rather than guessing a
	// timeline.
	if session == nil {
		return Playback{Mode: ModeOnDemand, AllowSeeking: true, StartPosition: last, LastPosition: last}
	}

	pos := int(now.Sub(session.ScheduledAt) / time.Second)
	if pos < 0 {
		pos = 0
	}
	return Playback{
		Mode:          ModeSimulatedLive,
		AllowSeeking:  false,
		StartPosition: pos,
		LastPosition:  last,
		Ended:         durationSeconds > 0 && pos >= durationSeconds,
	}
}

func clampProgress(progress, duration int) int {
	if progress < 0 {
		return 0
	}
	if duration > 0 && progress > duration {
		return duration
	}
	return progress
}
