package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/access"
	"github.com/evergreen-webinar/backend/internal/chat"
	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/webinars"
	"github.com/evergreen-webinar/backend/pkg/queue"
	"github.com/evergreen-webinar/backend/pkg/response"
)

// RespondRequest is the body for POST /webinars/:slug/interactions/respond.
type RespondRequest struct {
	Token         string          `json:"token" binding:"required"`
	InteractionID uuid.UUID       `json:"interaction_id" binding:"required"`
	EventType     string          `json:"event_type" binding:"required"`
	Response      json.RawMessage `json:"response,omitempty"`
}

// CreateRequest is the body for admin interaction create/update.
type CreateRequest struct {
	Type            models.InteractionType `json:"type" binding:"required"`
	TriggersAt      int                    `json:"triggers_at"`
	DurationSeconds int                    `json:"duration_seconds"`
	Title           string                 `json:"title"`
	Content         json.RawMessage        `json:"content" binding:"required"`
	PauseVideo      bool                   `json:"pause_video"`
	Required        bool                   `json:"required"`
	ShowOnReplay    *bool                  `json:"show_on_replay"`
	Position        string                 `json:"position"`
	Enabled         *bool                  `json:"enabled"`
}

// Handler handles interaction HTTP endpoints.
type Handler struct {
	repo        *Repository
	engine      *Engine
	accessSvc   *access.Service
	webinarRepo *webinars.Repository
	limiter     chat.Limiter
	events      *queue.Queue // nil when redis is not configured
	logger      *zap.Logger
}

// NewHandler creates an interactions handler. limiter caps client-reported
// events per registration so a hostile client cannot flood the event log.
func NewHandler(repo *Repository, engine *Engine, accessSvc *access.Service, webinarRepo *webinars.Repository, limiter chat.Limiter, events *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, engine: engine, accessSvc: accessSvc, webinarRepo: webinarRepo, limiter: limiter, events: events, logger: logger}
}

// allowEvent checks the per-registration event budget. Limiter failures are
// logged and the event is let through, matching the chat path.
func (h *Handler) allowEvent(ctx context.Context, registrationID uuid.UUID, now time.Time) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(ctx, "interactions:"+registrationID.String(), now)
	if err != nil {
		h.logger.Warn("interaction rate limiter failed", zap.Error(err))
		return true
	}
	return ok
}

// Respond handles POST /webinars/:slug/interactions/respond (viewer, token auth).
func (h *Handler) Respond(c *gin.Context) {
	w, err := h.webinarRepo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}

	var req RespondRequest
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

	if !h.allowEvent(c.Request.Context(), reg.ID, time.Now()) {
		response.TooManyRequests(c, 60)
		return
	}

	in, err := h.repo.GetByID(c.Request.Context(), req.InteractionID)
	if err != nil || in.WebinarID != w.ID {
		response.NotFound(c, "interaction not found")
		return
	}

	eventType := models.InteractionEventType(req.EventType)
	if err := h.engine.Record(c.Request.Context(), in, reg, eventType, req.Response); err != nil {
		if errors.Is(err, ErrBadResponse) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("record interaction event failed", zap.Error(err),
			zap.String("interaction_id", in.ID.String()))
		response.Internal(c, "failed to record event")
		return
	}

	h.enqueueEvent(w.ID, reg.ID, "interaction_"+req.EventType, req.InteractionID)
	response.OK(c, gin.H{"recorded": true})
}

// Results handles GET /webinars/:id/interactions/:interactionId/results (admin).
func (h *Handler) Results(c *gin.Context) {
	interactionID, err := uuid.Parse(c.Param("interactionId"))
	if err != nil {
		response.BadRequest(c, "invalid interaction id")
		return
	}
	in, err := h.repo.GetByID(c.Request.Context(), interactionID)
	if err != nil {
		response.NotFound(c, "interaction not found")
		return
	}
	results, err := h.engine.Results(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("aggregate results failed", zap.Error(err))
		response.Internal(c, "failed to aggregate results")
		return
	}
	response.OK(c, results)
}

// Create handles POST /webinars/:id/interactions (admin).
func (h *Handler) Create(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := ParseContent(req.Type, req.Content); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in := &models.Interaction{
		WebinarID:       webinarID,
		Type:            req.Type,
		TriggersAt:      req.TriggersAt,
		DurationSeconds: defaultInt(req.DurationSeconds, 30),
		Title:           req.Title,
		Content:         req.Content,
		PauseVideo:      req.PauseVideo,
		Required:        req.Required,
		ShowOnReplay:    defaultBool(req.ShowOnReplay, true),
		Position:        defaultString(req.Position, "center"),
		Enabled:         defaultBool(req.Enabled, true),
	}
	if err := h.repo.Create(c.Request.Context(), in); err != nil {
		h.logger.Error("create interaction failed", zap.Error(err))
		response.Internal(c, "failed to create interaction")
		return
	}
	response.Created(c, in)
}

// Update handles PATCH /interactions/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid interaction id")
		return
	}
	in, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "interaction not found")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := ParseContent(req.Type, req.Content); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in.Type = req.Type
	in.TriggersAt = req.TriggersAt
	in.DurationSeconds = defaultInt(req.DurationSeconds, in.DurationSeconds)
	in.Title = req.Title
	in.Content = req.Content
	in.PauseVideo = req.PauseVideo
	in.Required = req.Required
	in.ShowOnReplay = defaultBool(req.ShowOnReplay, in.ShowOnReplay)
	in.Position = defaultString(req.Position, in.Position)
	in.Enabled = defaultBool(req.Enabled, in.Enabled)
	if err := h.repo.Update(c.Request.Context(), in); err != nil {
		h.logger.Error("update interaction failed", zap.Error(err))
		response.Internal(c, "failed to update interaction")
		return
	}
	response.OK(c, in)
}

// List handles GET /webinars/:id/interactions (admin; includes disabled).
func (h *Handler) List(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	list, err := h.repo.ListByWebinar(c.Request.Context(), webinarID)
	if err != nil {
		response.Internal(c, "failed to list interactions")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /interactions/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid interaction id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete interaction")
		return
	}
	response.NoContent(c)
}

// enqueueEvent ships an engagement fact to the background queue. Best-effort:
// failures are logged and swallowed, the system of record already holds the
// interaction event.
func (h *Handler) enqueueEvent(webinarID, registrationID uuid.UUID, eventType string, interactionID uuid.UUID) {
	if h.events == nil {
		return
	}
	meta, _ := json.Marshal(gin.H{"interaction_id": interactionID})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.events.EnqueueEngagementEvent(ctx, queue.EngagementEventPayload{
		WebinarID:      webinarID,
		RegistrationID: &registrationID,
		EventType:      eventType,
		Metadata:       meta,
		OccurredAt:     time.Now(),
	})
	if err != nil {
		h.logger.Warn("enqueue engagement event failed", zap.Error(err))
	}
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultBool(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
