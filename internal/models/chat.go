package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a chat line in a webinar room. Simulated messages are
// authored once with an offset (AppearsAt) and replayed at that relative
// position for every session; real messages are permanent facts.
type ChatMessage struct {
	ID              uuid.UUID  `json:"id"`
	WebinarID       uuid.UUID  `json:"webinar_id"`
	RegistrationID  *uuid.UUID `json:"registration_id,omitempty"` // nil for simulated/moderator
	SenderName      string     `json:"sender_name"`
	Message         string     `json:"message"`
	IsSimulated     bool       `json:"is_simulated"`
	IsFromModerator bool       `json:"is_from_moderator"`
	IsHidden        bool       `json:"is_hidden"`
	AppearsAt       *int       `json:"appears_at,omitempty"` // seconds into video, simulated only
	CreatedAt       time.Time  `json:"created_at"`
}
