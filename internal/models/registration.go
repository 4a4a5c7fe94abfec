package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegistrationType is how the registrant will watch.
type RegistrationType string

const (
	RegScheduled  RegistrationType = "scheduled"
	RegJustInTime RegistrationType = "just_in_time"
	RegOnDemand   RegistrationType = "on_demand"
	RegReplay     RegistrationType = "replay"
)

// Registration is one viewer signup. The access token is the viewer's sole
// bearer credential; it is opaque, long-lived and never logged.
type Registration struct {
	ID               uuid.UUID        `json:"id"`
	WebinarID        uuid.UUID        `json:"webinar_id"`
	SessionID        *uuid.UUID       `json:"session_id,omitempty"` // nil for on-demand
	SessionType      RegistrationType `json:"session_type"`
	Email            string           `json:"email"`
	FullName         string           `json:"full_name"`
	AccessToken      string           `json:"-"`
	WatchProgress    int              `json:"watch_progress"`     // seconds, last reported position
	MaxVideoPosition int              `json:"max_video_position"` // seconds, furthest point reached
	JoinedAt         *time.Time       `json:"joined_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// DisplayName is the chat sender name: first name if present, else the email
// local part.
func (r *Registration) DisplayName() string {
	if name := strings.TrimSpace(r.FullName); name != "" {
		if i := strings.IndexByte(name, ' '); i > 0 {
			return name[:i]
		}
		return name
	}
	if i := strings.IndexByte(r.Email, '@'); i > 0 {
		return r.Email[:i]
	}
	return "Guest"
}
