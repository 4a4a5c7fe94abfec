package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/access"
	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/schedule"
	"github.com/evergreen-webinar/backend/internal/webinars"
	"github.com/evergreen-webinar/backend/pkg/queue"
	"github.com/evergreen-webinar/backend/pkg/response"
)

// ErrNotAvailable means the requested watch mode is not offered by the
// webinar's schedule.
var ErrNotAvailable = errors.New("requested session type not available")

// RegisterRequest is the body for POST /webinars/:slug/register. Email may be
// omitted only when the resolved watch mode is ungated.
type RegisterRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	FullName    string `json:"full_name"`
	SessionType string `json:"session_type"` // scheduled | just_in_time | on_demand | replay
	ScheduledAt string `json:"scheduled_at"` // RFC3339, picks a specific upcoming session
}

// identityRequired reports whether the watch mode sits behind a registration
// form. Ungated on-demand and replay admit anonymous viewers; they still get
// a registration row and token so progress and chat keep working.
func identityRequired(cfg *models.ScheduleConfig, regType models.RegistrationType) bool {
	switch regType {
	case models.RegOnDemand:
		return !cfg.OnDemandUngated
	case models.RegReplay:
		return !cfg.ReplayUngated
	default:
		return true
	}
}

// Handler handles registration endpoints.
type Handler struct {
	repo        *Repository
	webinarRepo *webinars.Repository
	resolver    *schedule.Resolver
	sessionRepo *schedule.Repository
	accessSvc   *access.Service
	events      *queue.Queue // nil when redis is not configured
	logger      *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, webinarRepo *webinars.Repository, resolver *schedule.Resolver, sessionRepo *schedule.Repository, accessSvc *access.Service, events *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:        repo,
		webinarRepo: webinarRepo,
		resolver:    resolver,
		sessionRepo: sessionRepo,
		accessSvc:   accessSvc,
		events:      events,
		logger:      logger,
	}
}

// Register handles POST /webinars/:slug/register. Returns the access token;
// this response is the only place the token ever appears.
func (h *Handler) Register(c *gin.Context) {
	w, err := h.webinarRepo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || w == nil || w.Status != models.WebinarPublished {
		response.NotFound(c, "webinar not found")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	cfg, err := h.webinarRepo.GetScheduleConfig(c.Request.Context(), w.ID)
	if err != nil {
		h.logger.Error("load schedule config failed", zap.Error(err))
		response.Internal(c, "failed to load schedule")
		return
	}
	if cfg == nil {
		response.Conflict(c, "webinar has no schedule")
		return
	}

	var pickedAt *time.Time
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			response.BadRequest(c, "scheduled_at must be RFC3339")
			return
		}
		pickedAt = &t
	}

	now := time.Now()
	session, regType, err := h.resolveSession(c.Request.Context(), w, cfg, req.SessionType, pickedAt, now)
	if err != nil {
		if errors.Is(err, ErrNotAvailable) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("resolve session failed", zap.Error(err))
		response.Internal(c, "failed to resolve session")
		return
	}

	if req.Email == "" && identityRequired(cfg, regType) {
		response.BadRequest(c, "email is required")
		return
	}

	token, err := h.accessSvc.IssueToken(c.Request.Context())
	if err != nil {
		h.logger.Error("issue token failed", zap.Error(err))
		response.Internal(c, "failed to issue access token")
		return
	}

	reg := &models.Registration{
		WebinarID:   w.ID,
		SessionType: regType,
		Email:       req.Email,
		FullName:    req.FullName,
		AccessToken: token,
	}
	if session != nil {
		reg.SessionID = &session.ID
	}
	if err := h.repo.Create(c.Request.Context(), reg); err != nil {
		h.logger.Error("create registration failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}

	h.enqueueRegistered(w.ID, reg.ID, now)

	body := gin.H{
		"registration": reg,
		"access_token": token,
		"watch_url":    "/webinars/" + w.Slug + "/access?token=" + token,
	}
	if session != nil {
		body["session"] = session
	}
	response.Created(c, body)
}

// Sessions handles GET /webinars/:slug/sessions: the public picker of
// upcoming sessions plus which other watch modes the schedule offers.
func (h *Handler) Sessions(c *gin.Context) {
	w, err := h.webinarRepo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || w == nil || w.Status != models.WebinarPublished {
		response.NotFound(c, "webinar not found")
		return
	}
	cfg, err := h.webinarRepo.GetScheduleConfig(c.Request.Context(), w.ID)
	if err != nil {
		response.Internal(c, "failed to load schedule")
		return
	}
	if cfg == nil {
		response.OK(c, gin.H{"sessions": []time.Time{}})
		return
	}

	now := time.Now()
	upcoming := schedule.Upcoming(cfg, w.Location(), now, cfg.MaxSessionsToShow)
	response.OK(c, gin.H{
		"sessions":             upcoming,
		"just_in_time_enabled": cfg.JustInTimeEnabled,
		"on_demand_enabled":    cfg.OnDemandEnabled,
		"replay_enabled":       cfg.ReplayEnabled,
	})
}

// List handles GET /admin/webinars/:id/registrations.
func (h *Handler) List(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	regs, err := h.repo.ListByWebinar(c.Request.Context(), webinarID, 100, 0)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, regs)
}

// resolveSession maps the requested watch mode to a session row. A scheduled
// request with no remaining occurrence falls through to just-in-time, then
// on-demand, then replay, before giving up.
func (h *Handler) resolveSession(ctx context.Context, w *models.Webinar, cfg *models.ScheduleConfig, reqType string, pickedAt *time.Time, now time.Time) (*models.Session, models.RegistrationType, error) {
	switch models.RegistrationType(reqType) {
	case models.RegJustInTime:
		return h.resolveJustInTime(ctx, w, cfg, now)
	case models.RegOnDemand:
		if !cfg.OnDemandEnabled {
			return nil, "", fmt.Errorf("%w: on-demand is disabled", ErrNotAvailable)
		}
		return nil, models.RegOnDemand, nil
	case models.RegReplay:
		return h.resolveReplay(ctx, w, cfg, now)
	case models.RegScheduled, "":
		if pickedAt != nil {
			return h.resolvePicked(ctx, w, cfg, *pickedAt, now)
		}
		session, err := h.resolver.NextScheduled(ctx, w, cfg, now)
		if err != nil {
			return nil, "", err
		}
		if session != nil {
			return session, models.RegScheduled, nil
		}
		// No occurrence left on the calendar.
		if cfg.JustInTimeEnabled {
			return h.resolveJustInTime(ctx, w, cfg, now)
		}
		if cfg.OnDemandEnabled {
			return nil, models.RegOnDemand, nil
		}
		if cfg.ReplayEnabled {
			return h.resolveReplay(ctx, w, cfg, now)
		}
		return nil, "", fmt.Errorf("%w: no upcoming sessions", ErrNotAvailable)
	default:
		return nil, "", fmt.Errorf("%w: unknown session type %q", ErrNotAvailable, reqType)
	}
}

func (h *Handler) resolveJustInTime(ctx context.Context, w *models.Webinar, cfg *models.ScheduleConfig, now time.Time) (*models.Session, models.RegistrationType, error) {
	if !cfg.JustInTimeEnabled {
		return nil, "", fmt.Errorf("%w: just-in-time is disabled", ErrNotAvailable)
	}
	session, err := h.resolver.JustInTime(ctx, w.ID, cfg, now)
	if err != nil {
		return nil, "", err
	}
	return session, models.RegJustInTime, nil
}

func (h *Handler) resolveReplay(ctx context.Context, w *models.Webinar, cfg *models.ScheduleConfig, now time.Time) (*models.Session, models.RegistrationType, error) {
	if !cfg.ReplayEnabled {
		return nil, "", fmt.Errorf("%w: replay is disabled", ErrNotAvailable)
	}
	session, err := h.sessionRepo.LatestPast(ctx, w.ID, now)
	if err != nil {
		return nil, "", err
	}
	if session == nil {
		return nil, "", fmt.Errorf("%w: no past session to replay", ErrNotAvailable)
	}
	return session, models.RegReplay, nil
}

// resolvePicked validates the requested time against the published calendar
// before creating the session row; arbitrary timestamps are rejected.
func (h *Handler) resolvePicked(ctx context.Context, w *models.Webinar, cfg *models.ScheduleConfig, pickedAt time.Time, now time.Time) (*models.Session, models.RegistrationType, error) {
	max := cfg.MaxSessionsToShow
	if max < 10 {
		max = 10
	}
	for _, t := range schedule.Upcoming(cfg, w.Location(), now, max) {
		if t.Equal(pickedAt) {
			session, err := h.sessionRepo.GetOrCreate(ctx, w.ID, t, models.SessionScheduled)
			if err != nil {
				return nil, "", err
			}
			return session, models.RegScheduled, nil
		}
	}
	return nil, "", fmt.Errorf("%w: scheduled_at is not an upcoming session", ErrNotAvailable)
}

func (h *Handler) enqueueRegistered(webinarID, registrationID uuid.UUID, now time.Time) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.events.EnqueueEngagementEvent(ctx, queue.EngagementEventPayload{
		WebinarID:      webinarID,
		RegistrationID: &registrationID,
		EventType:      "registered",
		OccurredAt:     now,
	})
	if err != nil {
		h.logger.Warn("enqueue registered event failed", zap.Error(err))
	}
}
