package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType is how a webinar's sessions are scheduled.
type EventType string

const (
	EventRecurring     EventType = "recurring"
	EventOneTime       EventType = "one_time"
	EventSpecificDates EventType = "specific_dates"
	EventOnDemandOnly  EventType = "on_demand_only"
)

// ScheduleConfig is the one-per-webinar schedule definition.
type ScheduleConfig struct {
	WebinarID              uuid.UUID   `json:"webinar_id"`
	EventType              EventType   `json:"event_type"`
	RecurringDays          []int16     `json:"recurring_days"`  // 0=Sunday .. 6=Saturday
	RecurringTimes         []string    `json:"recurring_times"` // "HH:MM" in the webinar timezone
	SpecificDates          []time.Time `json:"specific_dates"`
	BlackoutDates          []time.Time `json:"blackout_dates"` // calendar dates, no sessions created
	OnDemandEnabled        bool        `json:"on_demand_enabled"`
	OnDemandUngated        bool        `json:"on_demand_ungated"`
	JustInTimeEnabled      bool        `json:"just_in_time_enabled"`
	IntervalMinutes        int         `json:"interval_minutes"` // just-in-time boundary, e.g. 15
	ReplayEnabled          bool        `json:"replay_enabled"`
	ReplayUngated          bool        `json:"replay_ungated"`
	ReplayExpiresAfterDays *int        `json:"replay_expires_after_days,omitempty"` // nil = never expires
	MaxSessionsToShow      int         `json:"max_sessions_to_show"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// SessionType distinguishes wall-clock sessions from ones synthesized at
// registration time.
type SessionType string

const (
	SessionScheduled  SessionType = "scheduled"
	SessionJustInTime SessionType = "just_in_time"
)

// Session is a concrete broadcast instance. Created lazily, never deleted;
// the anchor for all playback-position arithmetic.
type Session struct {
	ID          uuid.UUID   `json:"id"`
	WebinarID   uuid.UUID   `json:"webinar_id"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	Type        SessionType `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
}
