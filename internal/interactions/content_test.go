package interactions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-webinar/backend/internal/models"
)

func TestParseContentPoll(t *testing.T) {
	raw := json.RawMessage(`{"question":"Which plan?","options":["Basic","Pro"],"allow_multiple":false}`)
	content, err := ParseContent(models.InteractionPoll, raw)
	require.NoError(t, err)
	poll := content.(*PollContent)
	assert.Len(t, poll.Options, 2)
}

func TestParseContentPollTooFewOptions(t *testing.T) {
	raw := json.RawMessage(`{"question":"?","options":["only one"]}`)
	_, err := ParseContent(models.InteractionPoll, raw)
	assert.Error(t, err)
}

func TestParseContentQuiz(t *testing.T) {
	raw := json.RawMessage(`{"question":"2+2?","options":["3","4","5"],"correct_answers":[1]}`)
	content, err := ParseContent(models.InteractionQuiz, raw)
	require.NoError(t, err)
	quiz := content.(*QuizContent)
	assert.Equal(t, []int64{1}, quiz.CorrectAnswers)
}

func TestParseContentQuizBadAnswerIndex(t *testing.T) {
	raw := json.RawMessage(`{"question":"?","options":["a","b"],"correct_answers":[5]}`)
	_, err := ParseContent(models.InteractionQuiz, raw)
	assert.Error(t, err)

	raw = json.RawMessage(`{"question":"?","options":["a","b"],"correct_answers":[]}`)
	_, err = ParseContent(models.InteractionQuiz, raw)
	assert.Error(t, err)
}

func TestParseContentRejectsUnknownFields(t *testing.T) {
	raw := json.RawMessage(`{"question":"?","options":["a","b"],"bogus":true}`)
	_, err := ParseContent(models.InteractionPoll, raw)
	assert.Error(t, err, "unknown fields rejected")
}

func TestParseContentRejectsWrongShape(t *testing.T) {
	// A CTA payload is not a valid poll.
	raw := json.RawMessage(`{"button_label":"Buy","button_url":"https://example.com"}`)
	_, err := ParseContent(models.InteractionPoll, raw)
	assert.Error(t, err)
}

func TestParseContentFeedbackLabels(t *testing.T) {
	_, err := ParseContent(models.InteractionFeedback, json.RawMessage(`{"prompt":"How was it?"}`))
	assert.NoError(t, err, "labels optional")

	_, err = ParseContent(models.InteractionFeedback, json.RawMessage(`{"prompt":"?","labels":["poor","okay","great"]}`))
	assert.NoError(t, err)

	_, err = ParseContent(models.InteractionFeedback, json.RawMessage(`{"prompt":"?","labels":["bad","good"]}`))
	assert.Error(t, err, "labels must be exactly 3 when present")
}

func TestParseContentCTA(t *testing.T) {
	_, err := ParseContent(models.InteractionCTA, json.RawMessage(`{"button_label":"Go","button_url":"https://example.com"}`))
	assert.NoError(t, err)

	_, err = ParseContent(models.InteractionCTA, json.RawMessage(`{"button_label":"Go"}`))
	assert.Error(t, err, "button_url required")
}

func TestParseContentContactForm(t *testing.T) {
	raw := json.RawMessage(`{"fields":[{"id":"email","label":"Email","type":"email","required":true}]}`)
	_, err := ParseContent(models.InteractionContactForm, raw)
	assert.NoError(t, err)

	_, err = ParseContent(models.InteractionContactForm, json.RawMessage(`{"fields":[]}`))
	assert.Error(t, err)

	_, err = ParseContent(models.InteractionContactForm, json.RawMessage(`{"fields":[{"label":"no id"}]}`))
	assert.Error(t, err)
}

func TestParseContentUnknownType(t *testing.T) {
	_, err := ParseContent(models.InteractionType("karaoke"), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestParseContentPause(t *testing.T) {
	_, err := ParseContent(models.InteractionPause, json.RawMessage(`{}`))
	assert.NoError(t, err, "pause content may be empty")
}
