package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ViewerAuth resolves a viewer access token for a webinar. Returns the
// registration ID and display name, or an error for unknown tokens.
type ViewerAuth func(token string, webinarID uuid.UUID) (registrationID uuid.UUID, displayName string, err error)

// StaffAuth resolves an authoring JWT. Returns the user ID and role.
type StaffAuth func(token string) (userID uuid.UUID, role string, err error)

// Client is a single WebSocket connection in a webinar room.
type Client struct {
	ID             string
	WebinarID      uuid.UUID
	RegistrationID uuid.UUID // zero for staff connections
	DisplayName    string
	Role           string // "viewer" or the staff role
	JoinedAt       time.Time
	hub            *Hub
	conn           *websocket.Conn
	send           chan WSMessage
	logger         *zap.Logger
}

// ServeWs upgrades the connection and runs the client read/write loops.
// Viewers authenticate with their registration access token; staff with a
// JWT passed as staff_token.
func ServeWs(hub *Hub, logger *zap.Logger, viewerAuth ViewerAuth, staffAuth StaffAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		webinarIDStr := c.Query("webinar_id")
		webinarID, err := uuid.Parse(webinarIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webinar_id"})
			return
		}

		var regID uuid.UUID
		var displayName, role string
		if staffToken := c.Query("staff_token"); staffToken != "" && staffAuth != nil {
			_, staffRole, err := staffAuth(staffToken)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			role = staffRole
			displayName = "Host"
		} else {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
				return
			}
			regID, displayName, err = viewerAuth(token, webinarID)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			role = "viewer"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:             uuid.New().String(),
			WebinarID:      webinarID,
			RegistrationID: regID,
			DisplayName:    displayName,
			Role:           role,
			JoinedAt:       time.Now(),
			hub:            hub,
			conn:           conn,
			send:           make(chan WSMessage, 256),
			logger:         logger,
		}
		hub.Register(client)
		hub.SendToClient(webinarID, client.ID, "audience_count", map[string]int{
			"count": hub.AudienceCount(webinarID),
		})
		go client.writePump()
		client.readPump()
	}
}

// readPump consumes inbound frames. Chat messages go through the HTTP API
// (rate limiting, persistence), so the socket is broadcast-mostly; inbound
// traffic only keeps the read deadline alive.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "typing":
			if c.Role != "viewer" {
				c.hub.BroadcastToWebinarAndPublish(c.WebinarID, "host_typing", json.RawMessage(msg.Data))
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
