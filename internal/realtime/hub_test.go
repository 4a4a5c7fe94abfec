package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(webinarID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.New().String(),
		WebinarID: webinarID,
		Role:      "viewer",
		send:      make(chan WSMessage, 16),
	}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHubRegisterUnregisterCounts(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	a := testClient(webinarID)
	b := testClient(webinarID)
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.AudienceCount(webinarID))

	hub.Unregister(a)
	assert.Equal(t, 1, hub.AudienceCount(webinarID))
	hub.Unregister(b)
	assert.Equal(t, 0, hub.AudienceCount(webinarID))
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	roomA, roomB := uuid.New(), uuid.New()

	a := testClient(roomA)
	b := testClient(roomB)
	hub.Register(a)
	hub.Register(b)
	drain(a)
	drain(b)

	hub.BroadcastToWebinar(roomA, "chat_message", map[string]string{"text": "hi"})

	msgsA := drain(a)
	require.Len(t, msgsA, 1)
	assert.Equal(t, "chat_message", msgsA[0].Event)
	assert.Empty(t, drain(b), "other rooms see nothing")
}

func TestHubPublishOnlyFallsBackToLocalWithoutRedis(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()
	c := testClient(webinarID)
	hub.Register(c)
	drain(c)

	hub.PublishToWebinarOnly(webinarID, "chat_message", map[string]string{"text": "hello"})

	msgs := drain(c)
	require.Len(t, msgs, 1)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.Equal(t, "hello", payload["text"])
}

func TestHubAudienceChangeHandler(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	var counts []int
	hub.SetAudienceChangeHandler(func(id uuid.UUID, count int) {
		if id == webinarID {
			counts = append(counts, count)
		}
	})

	a := testClient(webinarID)
	b := testClient(webinarID)
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)

	assert.Equal(t, []int{1, 2, 1}, counts)
}
