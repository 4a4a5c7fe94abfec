package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalyticsEvent is an append-only engagement fact used for funnel and
// attribution aggregation. Never mutated after insert.
type AnalyticsEvent struct {
	ID             uuid.UUID       `json:"id"`
	WebinarID      uuid.UUID       `json:"webinar_id"`
	RegistrationID *uuid.UUID      `json:"registration_id,omitempty"`
	EventType      string          `json:"event_type"` // e.g. "registered", "progress", "completed"
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
