package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarStatus is the publication state of a webinar.
type WebinarStatus string

const (
	WebinarDraft     WebinarStatus = "draft"
	WebinarPublished WebinarStatus = "published"
	WebinarArchived  WebinarStatus = "archived"
)

// Webinar is a pre-recorded video presented as a live broadcast.
// Edits only affect future sessions; past sessions keep the timestamps they
// were anchored to.
type Webinar struct {
	ID                uuid.UUID     `json:"id"`
	Slug              string        `json:"slug"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	VideoURL          string        `json:"video_url"` // HLS or MP4
	DurationSeconds   int           `json:"duration_seconds"`
	ChatEnabled       bool          `json:"chat_enabled"`
	CompletionPercent int           `json:"completion_percent"` // 0-100, watch threshold for "completed"
	Timezone          string        `json:"timezone"`           // IANA name, e.g. "America/New_York"
	Status            WebinarStatus `json:"status"`
	CreatedBy         uuid.UUID     `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Location resolves the webinar timezone, falling back to UTC.
func (w *Webinar) Location() *time.Location {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
