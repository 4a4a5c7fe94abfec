package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InteractionType is the kind of timed prompt shown during playback.
type InteractionType string

const (
	InteractionPoll         InteractionType = "poll"
	InteractionQuestion     InteractionType = "question"
	InteractionCTA          InteractionType = "cta"
	InteractionDownload     InteractionType = "download"
	InteractionFeedback     InteractionType = "feedback"
	InteractionTip          InteractionType = "tip"
	InteractionSpecialOffer InteractionType = "special_offer"
	InteractionPause        InteractionType = "pause"
	InteractionQuiz         InteractionType = "quiz"
	InteractionContactForm  InteractionType = "contact_form"
)

// Interaction is a timed prompt belonging to a webinar. Content is a
// type-specific payload validated against the interaction type at the
// boundary (see internal/interactions).
type Interaction struct {
	ID              uuid.UUID       `json:"id"`
	WebinarID       uuid.UUID       `json:"webinar_id"`
	Type            InteractionType `json:"type"`
	TriggersAt      int             `json:"triggers_at"` // seconds into the video
	DurationSeconds int             `json:"duration_seconds"`
	Title           string          `json:"title"`
	Content         json.RawMessage `json:"content"`
	PauseVideo      bool            `json:"pause_video"`
	Required        bool            `json:"required"`
	ShowOnReplay    bool            `json:"show_on_replay"`
	Position        string          `json:"position"` // client hint, e.g. "center", "bottom_right"
	Enabled         bool            `json:"enabled"`
	ViewCount       int             `json:"view_count"`
	ActionCount     int             `json:"action_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// InteractionEventType is what a viewer did with an interaction.
type InteractionEventType string

const (
	EventViewed     InteractionEventType = "viewed"
	EventResponded  InteractionEventType = "responded"
	EventClicked    InteractionEventType = "clicked"
	EventDismissed  InteractionEventType = "dismissed"
	EventDownloaded InteractionEventType = "downloaded"
)

// InteractionEvent is an append-only engagement fact. Never updated.
type InteractionEvent struct {
	ID             uuid.UUID            `json:"id"`
	InteractionID  uuid.UUID            `json:"interaction_id"`
	RegistrationID uuid.UUID            `json:"registration_id"`
	EventType      InteractionEventType `json:"event_type"`
	Metadata       json.RawMessage      `json:"metadata,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// PollResponse is the current (last-write-wins) response of one registration
// to one interaction. At most one row per pair; the event log keeps history.
type PollResponse struct {
	InteractionID   uuid.UUID `json:"interaction_id"`
	RegistrationID  uuid.UUID `json:"registration_id"`
	SelectedOptions []int64   `json:"selected_options,omitempty"` // option indexes
	TextResponse    *string   `json:"text_response,omitempty"`
	Rating          *int      `json:"rating,omitempty"` // 1..3: poor/okay/great
	UpdatedAt       time.Time `json:"updated_at"`
}
