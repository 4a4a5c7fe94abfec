// Package watch serves the viewer-facing watch page endpoints: the access
// check that assembles everything the player needs, and the progress beacon.
package watch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/access"
	"github.com/evergreen-webinar/backend/internal/interactions"
	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/playback"
	"github.com/evergreen-webinar/backend/internal/registrations"
	"github.com/evergreen-webinar/backend/internal/webinars"
	"github.com/evergreen-webinar/backend/pkg/queue"
	"github.com/evergreen-webinar/backend/pkg/response"
)

const webinarCacheTTL = 30 * time.Second

// ProgressRequest is the body for POST /webinars/:slug/access. Clients report
// position; older players send progress, accepted as an alias. event_type is
// an optional player event recorded alongside the beacon.
type ProgressRequest struct {
	Token     string `json:"token" binding:"required"`
	Progress  int    `json:"progress"`
	Position  int    `json:"position"`
	EventType string `json:"event_type"`
}

// playerEvents are the client-reported event types the beacon will record.
// Anything else is dropped so clients cannot pollute the analytics stream.
var playerEvents = map[string]bool{
	"paused":  true,
	"resumed": true,
	"seeked":  true,
}

// Handler composes access validation, position calculation and the
// interaction timeline into the watch page payload.
type Handler struct {
	accessSvc       *access.Service
	webinarRepo     *webinars.Repository
	regRepo         *registrations.Repository
	interactionRepo *interactions.Repository
	events          *queue.Queue // nil when redis is not configured
	cache           *gocache.Cache
	logger          *zap.Logger
}

// NewHandler creates a watch handler.
func NewHandler(accessSvc *access.Service, webinarRepo *webinars.Repository, regRepo *registrations.Repository, interactionRepo *interactions.Repository, events *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		accessSvc:       accessSvc,
		webinarRepo:     webinarRepo,
		regRepo:         regRepo,
		interactionRepo: interactionRepo,
		events:          events,
		cache:           gocache.New(webinarCacheTTL, 2*webinarCacheTTL),
		logger:          logger,
	}
}

// Access handles GET /webinars/:slug/access?token=... It runs the full gate
// sequence and, on success, returns the playback state, the interaction
// timeline and the chat settings in one payload.
func (h *Handler) Access(c *gin.Context) {
	w, err := h.webinarBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Internal(c, "failed to load webinar")
		return
	}
	if w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	cfg, err := h.webinarRepo.GetScheduleConfig(c.Request.Context(), w.ID)
	if err != nil {
		response.Internal(c, "failed to load schedule")
		return
	}

	now := time.Now()
	reg, session, err := h.accessSvc.Validate(c.Request.Context(), w, cfg, c.Query("token"), now)
	if err != nil {
		h.failAccess(c, err)
		return
	}

	pb := playback.Compute(reg.SessionType, session, reg.WatchProgress, w.DurationSeconds, now)

	replay := reg.SessionType == models.RegReplay
	timeline, err := h.interactionRepo.ListEnabled(c.Request.Context(), w.ID, replay)
	if err != nil {
		h.logger.Error("list interactions failed", zap.Error(err))
		response.Internal(c, "failed to load interactions")
		return
	}

	body := gin.H{
		"access": gin.H{
			"valid":           true,
			"registration_id": reg.ID,
			"session_type":    reg.SessionType,
		},
		"webinar": gin.H{
			"id":               w.ID,
			"slug":             w.Slug,
			"title":            w.Title,
			"description":      w.Description,
			"video_url":        w.VideoURL,
			"duration_seconds": w.DurationSeconds,
		},
		"playback":     pb,
		"interactions": timeline,
		"chat":         gin.H{"enabled": w.ChatEnabled},
		"server_time":  now.UTC(),
	}
	if session != nil {
		body["session"] = session
	}
	response.OK(c, body)
}

// Progress handles POST /webinars/:slug/access. Fires periodically from the
// player; detects completion against the webinar threshold.
func (h *Handler) Progress(c *gin.Context) {
	w, err := h.webinarBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	position := req.Position
	if position == 0 && req.Progress > 0 {
		position = req.Progress
	}
	if position < 0 {
		response.BadRequest(c, "position must be >= 0")
		return
	}
	if w.DurationSeconds > 0 && position > w.DurationSeconds {
		position = w.DurationSeconds
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

	if err := h.regRepo.UpdateProgress(c.Request.Context(), reg.ID, position); err != nil {
		h.logger.Error("update progress failed", zap.Error(err))
		response.Internal(c, "failed to record progress")
		return
	}

	if playerEvents[req.EventType] {
		h.enqueueEvent(w.ID, reg.ID, req.EventType, time.Now())
	}

	completed := reg.CompletedAt != nil
	threshold := w.DurationSeconds * w.CompletionPercent / 100
	if !completed && w.DurationSeconds > 0 && position >= threshold {
		now := time.Now()
		first, err := h.regRepo.MarkCompleted(c.Request.Context(), reg.ID, now)
		if err != nil {
			h.logger.Error("mark completed failed", zap.Error(err))
		} else if first {
			h.enqueueEvent(w.ID, reg.ID, "completed", now)
		}
		completed = true
	}

	response.OK(c, gin.H{"recorded": true, "completed": completed})
}

func (h *Handler) failAccess(c *gin.Context, err error) {
	var waiting *access.WaitingRoomError
	var expired *access.ReplayExpiredError
	switch {
	case errors.Is(err, access.ErrInvalidToken):
		response.Fail(c, http.StatusUnauthorized, response.CodeInvalidToken, nil)
	case errors.Is(err, access.ErrReplayDisabled):
		response.Fail(c, http.StatusForbidden, response.CodeReplayDisabled, nil)
	case errors.As(err, &waiting):
		response.Fail(c, http.StatusForbidden, response.CodeWaitingRoom, gin.H{"starts_at": waiting.StartsAt.UTC()})
	case errors.As(err, &expired):
		response.Fail(c, http.StatusForbidden, response.CodeReplayExpired, gin.H{"expired_at": expired.ExpiredAt.UTC()})
	default:
		h.logger.Error("access check failed", zap.Error(err))
		response.Internal(c, "access check failed")
	}
}

// webinarBySlug caches slug lookups briefly; every beacon and chat poll
// resolves the same handful of slugs.
func (h *Handler) webinarBySlug(ctx context.Context, slug string) (*models.Webinar, error) {
	if v, ok := h.cache.Get(slug); ok {
		return v.(*models.Webinar), nil
	}
	w, err := h.webinarRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if w != nil {
		h.cache.Set(slug, w, gocache.DefaultExpiration)
	}
	return w, nil
}

func (h *Handler) enqueueEvent(webinarID, registrationID uuid.UUID, eventType string, now time.Time) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.events.EnqueueEngagementEvent(ctx, queue.EngagementEventPayload{
		WebinarID:      webinarID,
		RegistrationID: &registrationID,
		EventType:      eventType,
		OccurredAt:     now,
	})
	if err != nil {
		h.logger.Warn("enqueue engagement event failed", zap.Error(err))
	}
}
