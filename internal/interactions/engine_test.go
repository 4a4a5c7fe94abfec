package interactions

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-webinar/backend/internal/models"
)

func pollInteraction(t *testing.T, options ...string) *models.Interaction {
	t.Helper()
	content, err := json.Marshal(PollContent{Question: "Favorite?", Options: options})
	require.NoError(t, err)
	return &models.Interaction{
		ID:      uuid.New(),
		Type:    models.InteractionPoll,
		Content: content,
	}
}

func TestBuildResponsePollValidOption(t *testing.T) {
	e := &Engine{}
	in := pollInteraction(t, "a", "b", "c")
	regID := uuid.New()

	resp, err := e.buildResponse(in, regID, json.RawMessage(`{"selected_options":[0,2]}`))
	require.NoError(t, err)
	assert.Equal(t, in.ID, resp.InteractionID)
	assert.Equal(t, regID, resp.RegistrationID)
	assert.Equal(t, []int64{0, 2}, resp.SelectedOptions)
}

func TestBuildResponsePollOptionOutOfRange(t *testing.T) {
	e := &Engine{}
	in := pollInteraction(t, "a", "b")

	_, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{"selected_options":[2]}`))
	assert.True(t, errors.Is(err, ErrBadResponse))

	_, err = e.buildResponse(in, uuid.New(), json.RawMessage(`{"selected_options":[-1]}`))
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestBuildResponsePollEmptySelection(t *testing.T) {
	e := &Engine{}
	in := pollInteraction(t, "a", "b")

	_, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestBuildResponseQuestionRequiresText(t *testing.T) {
	e := &Engine{}
	in := &models.Interaction{ID: uuid.New(), Type: models.InteractionQuestion}

	_, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{"text":""}`))
	assert.True(t, errors.Is(err, ErrBadResponse))

	resp, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{"text":"how does pricing work?"}`))
	require.NoError(t, err)
	require.NotNil(t, resp.TextResponse)
	assert.Equal(t, "how does pricing work?", *resp.TextResponse)
}

func TestBuildResponseFeedbackRatingRange(t *testing.T) {
	e := &Engine{}
	in := &models.Interaction{ID: uuid.New(), Type: models.InteractionFeedback}

	for _, bad := range []string{`{}`, `{"rating":0}`, `{"rating":4}`} {
		_, err := e.buildResponse(in, uuid.New(), json.RawMessage(bad))
		assert.True(t, errors.Is(err, ErrBadResponse), "payload %s", bad)
	}

	resp, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{"rating":3}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Rating)
	assert.Equal(t, 3, *resp.Rating)
}

func TestBuildResponseContactFormSerializesFields(t *testing.T) {
	e := &Engine{}
	in := &models.Interaction{ID: uuid.New(), Type: models.InteractionContactForm}

	_, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{"fields":{}}`))
	assert.True(t, errors.Is(err, ErrBadResponse))

	resp, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{"fields":{"email":"a@b.co","name":"Ada"}}`))
	require.NoError(t, err)
	require.NotNil(t, resp.TextResponse)

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(*resp.TextResponse), &fields))
	assert.Equal(t, map[string]string{"email": "a@b.co", "name": "Ada"}, fields)
}

func TestBuildResponseCTANoPayloadNeeded(t *testing.T) {
	e := &Engine{}
	in := &models.Interaction{ID: uuid.New(), Type: models.InteractionCTA}

	resp, err := e.buildResponse(in, uuid.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, resp.TextResponse)
	assert.Empty(t, resp.SelectedOptions)
}

func TestCountOptions(t *testing.T) {
	counts, total := CountOptions([][]int64{{0}, {0, 1}, {1}})
	assert.Equal(t, map[int64]int{0: 2, 1: 2}, counts)
	assert.Equal(t, 3, total, "a multi-select response counts once in the total")
}

func TestCountOptionsEmpty(t *testing.T) {
	counts, total := CountOptions(nil)
	assert.Empty(t, counts)
	assert.Zero(t, total)
}

func TestCorrectResponses(t *testing.T) {
	// Correct answer is option 1: the multi-select and the exact pick score,
	// the lone option 0 does not.
	correctN, total := CorrectResponses([][]int64{{0}, {0, 1}, {1}}, []int64{1})
	assert.Equal(t, 2, correctN)
	assert.Equal(t, 3, total)

	correctN, _ = CorrectResponses([][]int64{{2, 2}}, []int64{2})
	assert.Equal(t, 1, correctN, "a response never scores twice")
}

func TestBuildResponseMalformedJSON(t *testing.T) {
	e := &Engine{}
	in := &models.Interaction{ID: uuid.New(), Type: models.InteractionQuestion}

	_, err := e.buildResponse(in, uuid.New(), json.RawMessage(`{not json`))
	assert.True(t, errors.Is(err, ErrBadResponse))
}
