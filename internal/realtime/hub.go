package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// AudienceChangeHandler is called when the audience count for a webinar
// changes (used for peak viewer tracking).
type AudienceChangeHandler func(webinarID uuid.UUID, count int)

// RedisPublisher publishes events for cross-instance broadcast.
type RedisPublisher interface {
	PublishWebinarEvent(webinarID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to a webinar channel and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeWebinar(webinarID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains per-webinar rooms of WebSocket clients. Broadcasts go to
// local clients and, when Redis is configured, to other instances via
// pub/sub.
type Hub struct {
	rooms      map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func()
	mu         sync.RWMutex
	logger     *zap.Logger
	redisPub   RedisPublisher
	redisSub   RedisSubscriber
	onAudience AudienceChangeHandler
}

// NewHub creates a WebSocket hub. Both Redis arguments may be nil for
// single-instance deployments.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redisPub: redisPub,
		redisSub: redisSub,
	}
}

// SetAudienceChangeHandler sets the callback invoked on join/leave.
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// Register adds a client to its webinar room. The first client in a room
// starts the Redis subscription for that webinar.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.WebinarID] == nil {
		h.rooms[c.WebinarID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeWebinar(c.WebinarID, func(event string, payload []byte) {
				h.BroadcastToWebinar(c.WebinarID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.WebinarID] = cancel
			} else {
				h.logger.Warn("redis subscribe failed", zap.Error(err))
			}
		}
	}
	h.rooms[c.WebinarID][c.ID] = c
	count := len(h.rooms[c.WebinarID])
	onAudience := h.onAudience
	h.mu.Unlock()

	h.BroadcastToWebinarAndPublish(c.WebinarID, "audience_count", map[string]int{"count": count})
	if onAudience != nil {
		onAudience(c.WebinarID, count)
	}
	h.logger.Debug("client joined", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// Unregister removes a client. The last client leaving a room cancels the
// room's Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if room, ok := h.rooms[c.WebinarID]; ok {
		delete(room, c.ID)
		count = len(room)
		if count == 0 {
			delete(h.rooms, c.WebinarID)
			if cancel, ok := h.subs[c.WebinarID]; ok {
				cancel()
				delete(h.subs, c.WebinarID)
			}
		}
	}
	onAudience := h.onAudience
	h.mu.Unlock()

	if count > 0 {
		h.BroadcastToWebinarAndPublish(c.WebinarID, "audience_count", map[string]int{"count": count})
		if onAudience != nil {
			onAudience(c.WebinarID, count)
		}
	}
	h.logger.Debug("client left", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// BroadcastToWebinar sends a message to all local clients in a webinar.
func (h *Hub) BroadcastToWebinar(webinarID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	room := h.rooms[webinarID]
	h.mu.RUnlock()

	for _, c := range room {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToWebinarAndPublish sends to local clients and publishes to Redis
// for other instances.
func (h *Hub) BroadcastToWebinarAndPublish(webinarID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToWebinar(webinarID, event, json.RawMessage(data))
	if h.redisPub != nil {
		_ = h.redisPub.PublishWebinarEvent(webinarID, event, data)
	}
}

// PublishToWebinarOnly publishes to Redis without a local broadcast. The
// Redis subscriber callback performs the broadcast once for all instances
// including this one, so local clients never see the event twice. Falls back
// to a local broadcast when Redis is not configured.
func (h *Hub) PublishToWebinarOnly(webinarID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redisPub != nil {
		_ = h.redisPub.PublishWebinarEvent(webinarID, event, data)
		return
	}
	h.BroadcastToWebinar(webinarID, event, json.RawMessage(data))
}

// SendToClient sends a message to a single client, e.g. the initial state
// snapshot right after a connection is registered.
func (h *Hub) SendToClient(webinarID uuid.UUID, clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	c := h.rooms[webinarID][clientID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

// AudienceCount returns the number of locally connected clients in a webinar.
func (h *Hub) AudienceCount(webinarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[webinarID])
}
