package interactions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/evergreen-webinar/backend/internal/models"
)

// Content is the type-specific payload of an interaction. The content column
// is JSONB, but the accepted shapes form a closed set: one per interaction
// kind, validated here at the boundary rather than treated as an open map.
type Content interface {
	Validate() error
}

// PollContent configures a poll prompt.
type PollContent struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	AllowMultiple bool     `json:"allow_multiple"`
}

func (c *PollContent) Validate() error {
	if len(c.Options) < 2 {
		return fmt.Errorf("poll needs at least 2 options, got %d", len(c.Options))
	}
	return nil
}

// QuizContent is a poll with graded answers.
type QuizContent struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswers []int64  `json:"correct_answers"` // option indexes
	AllowMultiple  bool     `json:"allow_multiple"`
}

func (c *QuizContent) Validate() error {
	if len(c.Options) < 2 {
		return fmt.Errorf("quiz needs at least 2 options, got %d", len(c.Options))
	}
	if len(c.CorrectAnswers) == 0 {
		return fmt.Errorf("quiz needs at least one correct answer")
	}
	for _, idx := range c.CorrectAnswers {
		if idx < 0 || idx >= int64(len(c.Options)) {
			return fmt.Errorf("correct answer index %d out of range", idx)
		}
	}
	return nil
}

// QuestionContent asks for free text.
type QuestionContent struct {
	Prompt      string `json:"prompt"`
	Placeholder string `json:"placeholder,omitempty"`
}

func (c *QuestionContent) Validate() error {
	if c.Prompt == "" {
		return fmt.Errorf("question needs a prompt")
	}
	return nil
}

// CTAContent is a call-to-action button.
type CTAContent struct {
	ButtonLabel string `json:"button_label"`
	ButtonURL   string `json:"button_url"`
}

func (c *CTAContent) Validate() error {
	if c.ButtonURL == "" {
		return fmt.Errorf("cta needs a button_url")
	}
	return nil
}

// DownloadContent offers a file.
type DownloadContent struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name,omitempty"`
}

func (c *DownloadContent) Validate() error {
	if c.FileURL == "" {
		return fmt.Errorf("download needs a file_url")
	}
	return nil
}

// FeedbackContent asks for a 1..3 ordinal rating (poor/okay/great).
type FeedbackContent struct {
	Prompt string   `json:"prompt"`
	Labels []string `json:"labels,omitempty"` // optional display labels, low to high
}

func (c *FeedbackContent) Validate() error {
	if len(c.Labels) != 0 && len(c.Labels) != 3 {
		return fmt.Errorf("feedback labels must be exactly 3, got %d", len(c.Labels))
	}
	return nil
}

// TipContent shows an informational note.
type TipContent struct {
	Text string `json:"text"`
}

func (c *TipContent) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("tip needs text")
	}
	return nil
}

// OfferContent is a time-boxed special offer.
type OfferContent struct {
	Headline         string `json:"headline"`
	ButtonLabel      string `json:"button_label,omitempty"`
	ButtonURL        string `json:"button_url"`
	ExpiresInSeconds int    `json:"expires_in_seconds,omitempty"` // countdown shown on screen
}

func (c *OfferContent) Validate() error {
	if c.ButtonURL == "" {
		return fmt.Errorf("special offer needs a button_url")
	}
	return nil
}

// PauseContent halts playback until dismissed.
type PauseContent struct {
	Message string `json:"message,omitempty"`
}

func (c *PauseContent) Validate() error { return nil }

// FormField is one input in a contact form.
type FormField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"` // "text", "email", "number", "textarea"
	Required bool   `json:"required"`
}

// FormContent collects structured contact details.
type FormContent struct {
	Fields []FormField `json:"fields"`
}

func (c *FormContent) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("contact form needs at least one field")
	}
	for i, f := range c.Fields {
		if f.ID == "" {
			return fmt.Errorf("form field %d missing id", i)
		}
	}
	return nil
}

// ParseContent decodes and validates a raw content payload against the
// interaction type. Unknown fields are rejected.
func ParseContent(typ models.InteractionType, raw json.RawMessage) (Content, error) {
	var content Content
	switch typ {
	case models.InteractionPoll:
		content = &PollContent{}
	case models.InteractionQuiz:
		content = &QuizContent{}
	case models.InteractionQuestion:
		content = &QuestionContent{}
	case models.InteractionCTA:
		content = &CTAContent{}
	case models.InteractionDownload:
		content = &DownloadContent{}
	case models.InteractionFeedback:
		content = &FeedbackContent{}
	case models.InteractionTip:
		content = &TipContent{}
	case models.InteractionSpecialOffer:
		content = &OfferContent{}
	case models.InteractionPause:
		content = &PauseContent{}
	case models.InteractionContactForm:
		content = &FormContent{}
	default:
		return nil, fmt.Errorf("unknown interaction type %q", typ)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(content); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", typ, err)
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return content, nil
}
