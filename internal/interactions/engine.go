package interactions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/models"
)

// ResponsePayload is the client-reported response body for a RESPONDED event.
// Which field applies depends on the interaction type.
type ResponsePayload struct {
	SelectedOptions []int64           `json:"selected_options,omitempty"` // poll, quiz
	Text            string            `json:"text,omitempty"`             // question
	Rating          *int              `json:"rating,omitempty"`           // feedback, 1..3
	Fields          map[string]string `json:"fields,omitempty"`           // contact form
}

// Engine records interaction events and maintains the per-pair state machine
// UNSEEN -> VIEWED -> RESPONDED, with CLICKED/DISMISSED/DOWNLOADED as side
// events. Triggering is a client concern; the server only records what the
// client reports.
type Engine struct {
	repo   *Repository
	logger *zap.Logger
}

// NewEngine creates an interaction engine.
func NewEngine(repo *Repository, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{repo: repo, logger: logger}
}

// Record appends the event fact and applies its state effects. A repeated
// RESPONDED overwrites the stored response (last-write-wins) while the event
// log keeps every fact.
func (e *Engine) Record(ctx context.Context, in *models.Interaction, reg *models.Registration, eventType models.InteractionEventType, raw json.RawMessage) error {
	ev := &models.InteractionEvent{
		InteractionID:  in.ID,
		RegistrationID: reg.ID,
		EventType:      eventType,
		Metadata:       raw,
	}
	if err := e.repo.InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	switch eventType {
	case models.EventViewed:
		first, err := e.repo.MarkViewed(ctx, in.ID, reg.ID)
		if err != nil {
			return fmt.Errorf("mark viewed: %w", err)
		}
		if first {
			if err := e.repo.IncrementViewCount(ctx, in.ID); err != nil {
				return fmt.Errorf("increment view count: %w", err)
			}
		}
	case models.EventResponded:
		resp, err := e.buildResponse(in, reg.ID, raw)
		if err != nil {
			return err
		}
		if err := e.repo.UpsertResponse(ctx, resp); err != nil {
			return fmt.Errorf("upsert response: %w", err)
		}
		if err := e.repo.MarkResponded(ctx, in.ID, reg.ID); err != nil {
			return fmt.Errorf("mark responded: %w", err)
		}
		if err := e.repo.IncrementActionCount(ctx, in.ID); err != nil {
			return fmt.Errorf("increment action count: %w", err)
		}
	case models.EventClicked, models.EventDownloaded:
		if err := e.repo.IncrementActionCount(ctx, in.ID); err != nil {
			return fmt.Errorf("increment action count: %w", err)
		}
	case models.EventDismissed:
		// side event only, no state change
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrBadResponse, eventType)
	}
	return nil
}

// ErrBadResponse marks client payloads that fail validation against the
// interaction's content schema.
var ErrBadResponse = fmt.Errorf("invalid interaction response")

func (e *Engine) buildResponse(in *models.Interaction, registrationID uuid.UUID, raw json.RawMessage) (*models.PollResponse, error) {
	var payload ResponsePayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	}

	resp := &models.PollResponse{InteractionID: in.ID, RegistrationID: registrationID}

	switch in.Type {
	case models.InteractionPoll, models.InteractionQuiz:
		if len(payload.SelectedOptions) == 0 {
			return nil, fmt.Errorf("%w: selected_options required", ErrBadResponse)
		}
		content, err := ParseContent(in.Type, in.Content)
		if err != nil {
			return nil, fmt.Errorf("stored content invalid: %w", err)
		}
		optionCount := int64(0)
		switch c := content.(type) {
		case *PollContent:
			optionCount = int64(len(c.Options))
		case *QuizContent:
			optionCount = int64(len(c.Options))
		}
		for _, idx := range payload.SelectedOptions {
			if idx < 0 || idx >= optionCount {
				return nil, fmt.Errorf("%w: option index %d out of range", ErrBadResponse, idx)
			}
		}
		resp.SelectedOptions = payload.SelectedOptions
	case models.InteractionQuestion:
		if payload.Text == "" {
			return nil, fmt.Errorf("%w: text required", ErrBadResponse)
		}
		resp.TextResponse = &payload.Text
	case models.InteractionFeedback:
		if payload.Rating == nil || *payload.Rating < 1 || *payload.Rating > 3 {
			return nil, fmt.Errorf("%w: rating must be 1..3", ErrBadResponse)
		}
		resp.Rating = payload.Rating
	case models.InteractionContactForm:
		if len(payload.Fields) == 0 {
			return nil, fmt.Errorf("%w: fields required", ErrBadResponse)
		}
		serialized, err := json.Marshal(payload.Fields)
		if err != nil {
			return nil, fmt.Errorf("serialize form payload: %w", err)
		}
		s := string(serialized)
		resp.TextResponse = &s
	default:
		// CTA, download, tip, offer, pause carry no structured response;
		// record the fact with an empty current-state row.
	}
	return resp, nil
}

// CountOptions tallies option index occurrences across response sets and
// returns the per-option counts plus the number of responding registrations.
// A multi-select response counts once per chosen option but once in total.
func CountOptions(sets [][]int64) (map[int64]int, int) {
	counts := make(map[int64]int)
	for _, set := range sets {
		for _, opt := range set {
			counts[opt]++
		}
	}
	return counts, len(sets)
}

// CorrectResponses returns how many response sets share at least one option
// with the correct answer set, plus the total graded count.
func CorrectResponses(sets [][]int64, correct []int64) (correctN, total int) {
	answers := make(map[int64]bool, len(correct))
	for _, c := range correct {
		answers[c] = true
	}
	for _, set := range sets {
		for _, opt := range set {
			if answers[opt] {
				correctN++
				break
			}
		}
	}
	return correctN, len(sets)
}

// Results holds the aggregate view of one interaction's responses.
type Results struct {
	InteractionID string         `json:"interaction_id"`
	Type          string         `json:"type"`
	ViewCount     int            `json:"view_count"`
	ActionCount   int            `json:"action_count"`
	TotalResponses int           `json:"total_responses"`
	OptionCounts  map[int64]int  `json:"option_counts,omitempty"`  // poll, quiz
	Accuracy      *float64       `json:"accuracy,omitempty"`       // quiz
	RatingCounts  map[int]int    `json:"rating_counts,omitempty"`  // feedback
	RatingMean    *float64       `json:"rating_mean,omitempty"`    // feedback
	TextResponses []string       `json:"text_responses,omitempty"` // question
}

// Results aggregates responses for admin display and poll result overlays.
func (e *Engine) Results(ctx context.Context, in *models.Interaction) (*Results, error) {
	out := &Results{
		InteractionID: in.ID.String(),
		Type:          string(in.Type),
		ViewCount:     in.ViewCount,
		ActionCount:   in.ActionCount,
	}

	switch in.Type {
	case models.InteractionPoll:
		sets, err := e.repo.SelectedOptionSets(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		out.OptionCounts, out.TotalResponses = CountOptions(sets)
	case models.InteractionQuiz:
		content, err := ParseContent(in.Type, in.Content)
		if err != nil {
			return nil, fmt.Errorf("stored content invalid: %w", err)
		}
		quiz := content.(*QuizContent)
		sets, err := e.repo.SelectedOptionSets(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		out.OptionCounts, out.TotalResponses = CountOptions(sets)
		correct, totalGraded := CorrectResponses(sets, quiz.CorrectAnswers)
		if totalGraded > 0 {
			acc := float64(correct) / float64(totalGraded)
			out.Accuracy = &acc
		}
	case models.InteractionFeedback:
		counts, err := e.repo.RatingCounts(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		out.RatingCounts = counts
		total, sum := 0, 0
		for rating, n := range counts {
			total += n
			sum += rating * n
		}
		out.TotalResponses = total
		if total > 0 {
			mean := float64(sum) / float64(total)
			out.RatingMean = &mean
		}
	case models.InteractionQuestion:
		texts, err := e.repo.TextResponses(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		out.TextResponses = texts
		out.TotalResponses = len(texts)
	default:
		total, err := e.repo.ResponseCount(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		out.TotalResponses = total
	}
	return out, nil
}
