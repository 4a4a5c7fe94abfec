package chat

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/access"
	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/webinars"
	"github.com/evergreen-webinar/backend/pkg/response"
)

// SendRequest is the body for POST /webinars/:slug/chat.
type SendRequest struct {
	Token   string `json:"token" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// ScriptRequest is the body for adding a scripted message.
type ScriptRequest struct {
	SenderName string `json:"sender_name" binding:"required"`
	Message    string `json:"message" binding:"required"`
	AppearsAt  int    `json:"appears_at"`
}

// ModeratorSendRequest is the body for a moderator message.
type ModeratorSendRequest struct {
	SenderName string `json:"sender_name"`
	Message    string `json:"message" binding:"required"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	service     *Service
	repo        *Repository
	accessSvc   *access.Service
	webinarRepo *webinars.Repository
	logger      *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(service *Service, repo *Repository, accessSvc *access.Service, webinarRepo *webinars.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, accessSvc: accessSvc, webinarRepo: webinarRepo, logger: logger}
}

// Send handles POST /webinars/:slug/chat (viewer, token auth).
func (h *Handler) Send(c *gin.Context) {
	w, err := h.webinarRepo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.accessSvc.Authenticate(c.Request.Context(), w.ID, req.Token)
	if errors.Is(err, access.ErrInvalidToken) {
		response.Fail(c, http.StatusUnauthorized, response.CodeInvalidToken, nil)
		return
	}
	if err != nil {
		h.logger.Error("authenticate failed", zap.Error(err))
		response.Internal(c, "failed to check token")
		return
	}

	msg, err := h.service.SendViewer(c.Request.Context(), w, reg, req.Message, time.Now())
	switch {
	case err == nil:
		response.Created(c, msg)
	case errors.Is(err, ErrRateLimited):
		response.TooManyRequests(c, 60)
	case errors.Is(err, ErrChatDisabled):
		response.Forbidden(c, "chat is disabled for this webinar")
	case errors.Is(err, ErrMessageTooLong), errors.Is(err, ErrEmptyMessage):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("send chat message failed", zap.Error(err))
		response.Internal(c, "failed to send message")
	}
}

// List handles GET /webinars/:slug/chat (viewer, token auth). position is the
// current playback offset in seconds; since is an optional RFC3339 cursor for
// polling real messages.
func (h *Handler) List(c *gin.Context) {
	w, err := h.webinarRepo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if _, err := h.accessSvc.Authenticate(c.Request.Context(), w.ID, c.Query("token")); err != nil {
		if errors.Is(err, access.ErrInvalidToken) {
			response.Fail(c, http.StatusUnauthorized, response.CodeInvalidToken, nil)
		} else {
			h.logger.Error("authenticate failed", zap.Error(err))
			response.Internal(c, "failed to check token")
		}
		return
	}

	position, _ := strconv.Atoi(c.DefaultQuery("position", "0"))
	since := time.Time{}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			since = t
		}
	}

	msgs, err := h.service.Timeline(c.Request.Context(), w.ID, position, since)
	if err != nil {
		h.logger.Error("list chat failed", zap.Error(err))
		response.Internal(c, "failed to list messages")
		return
	}
	response.OK(c, gin.H{"messages": msgs, "server_time": time.Now().UTC()})
}

// SendModerator handles POST /admin/webinars/:id/chat (JWT auth).
func (h *Handler) SendModerator(c *gin.Context) {
	w, ok := h.webinarByID(c)
	if !ok {
		return
	}
	var req ModeratorSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sender := req.SenderName
	if sender == "" {
		sender = "Host"
	}
	msg, err := h.service.SendModerator(c.Request.Context(), w, sender, req.Message)
	switch {
	case err == nil:
		response.Created(c, msg)
	case errors.Is(err, ErrChatDisabled):
		response.Forbidden(c, "chat is disabled for this webinar")
	case errors.Is(err, ErrMessageTooLong), errors.Is(err, ErrEmptyMessage):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("moderator message failed", zap.Error(err))
		response.Internal(c, "failed to send message")
	}
}

// AddScript handles POST /admin/webinars/:id/chat/script.
func (h *Handler) AddScript(c *gin.Context) {
	w, ok := h.webinarByID(c)
	if !ok {
		return
	}
	var req ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.AppearsAt < 0 {
		response.BadRequest(c, "appears_at must be >= 0")
		return
	}
	msg, err := h.repo.InsertSimulated(c.Request.Context(), w.ID, req.SenderName, req.Message, req.AppearsAt)
	if err != nil {
		h.logger.Error("add scripted message failed", zap.Error(err))
		response.Internal(c, "failed to add scripted message")
		return
	}
	response.Created(c, msg)
}

// ListScript handles GET /admin/webinars/:id/chat/script.
func (h *Handler) ListScript(c *gin.Context) {
	w, ok := h.webinarByID(c)
	if !ok {
		return
	}
	msgs, err := h.repo.ListScript(c.Request.Context(), w.ID)
	if err != nil {
		response.Internal(c, "failed to list script")
		return
	}
	response.OK(c, msgs)
}

// DeleteScript handles DELETE /admin/chat/script/:messageId.
func (h *Handler) DeleteScript(c *gin.Context) {
	id, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	if err := h.repo.DeleteSimulated(c.Request.Context(), id); err != nil {
		response.NotFound(c, "scripted message not found")
		return
	}
	response.NoContent(c)
}

// Hide handles POST /admin/webinars/:id/chat/:messageId/hide.
func (h *Handler) Hide(c *gin.Context) {
	w, ok := h.webinarByID(c)
	if !ok {
		return
	}
	msgID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	if err := h.service.Hide(c.Request.Context(), w.ID, msgID); err != nil {
		response.NotFound(c, "message not found")
		return
	}
	response.OK(c, gin.H{"hidden": true})
}

func (h *Handler) webinarByID(c *gin.Context) (*models.Webinar, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return nil, false
	}
	webinar, err := h.webinarRepo.GetByID(c.Request.Context(), id)
	if err != nil || webinar == nil {
		response.NotFound(c, "webinar not found")
		return nil, false
	}
	return webinar, true
}
