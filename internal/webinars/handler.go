package webinars

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/middleware"
	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/pkg/response"
)

// CreateRequest is the body for POST /webinars (admin).
type CreateRequest struct {
	Slug              string `json:"slug" binding:"required"`
	Title             string `json:"title" binding:"required"`
	Description       string `json:"description"`
	VideoURL          string `json:"video_url"`
	DurationSeconds   int    `json:"duration_seconds"`
	ChatEnabled       *bool  `json:"chat_enabled"`
	CompletionPercent int    `json:"completion_percent"`
	Timezone          string `json:"timezone"`
}

// ScheduleConfigRequest is the body for PUT /webinars/:id/schedule (admin).
type ScheduleConfigRequest struct {
	EventType              models.EventType `json:"event_type" binding:"required"`
	RecurringDays          []int16          `json:"recurring_days"`
	RecurringTimes         []string         `json:"recurring_times"`
	SpecificDates          []time.Time      `json:"specific_dates"`
	BlackoutDates          []time.Time      `json:"blackout_dates"`
	OnDemandEnabled        bool             `json:"on_demand_enabled"`
	OnDemandUngated        bool             `json:"on_demand_ungated"`
	JustInTimeEnabled      bool             `json:"just_in_time_enabled"`
	IntervalMinutes        int              `json:"interval_minutes"`
	ReplayEnabled          bool             `json:"replay_enabled"`
	ReplayUngated          bool             `json:"replay_ungated"`
	ReplayExpiresAfterDays *int             `json:"replay_expires_after_days"`
	MaxSessionsToShow      int              `json:"max_sessions_to_show"`
}

// Handler handles admin webinar endpoints.
type Handler struct {
	repo                     *Repository
	defaultCompletionPercent int
	logger                   *zap.Logger
}

// NewHandler creates a webinars handler.
func NewHandler(repo *Repository, defaultCompletionPercent int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, defaultCompletionPercent: defaultCompletionPercent, logger: logger}
}

// Create handles POST /webinars (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		response.BadRequest(c, "invalid timezone")
		return
	}
	completion := req.CompletionPercent
	if completion <= 0 || completion > 100 {
		completion = h.defaultCompletionPercent
	}
	chatEnabled := true
	if req.ChatEnabled != nil {
		chatEnabled = *req.ChatEnabled
	}

	w := &models.Webinar{
		Slug:              req.Slug,
		Title:             req.Title,
		Description:       req.Description,
		VideoURL:          req.VideoURL,
		DurationSeconds:   req.DurationSeconds,
		ChatEnabled:       chatEnabled,
		CompletionPercent: completion,
		Timezone:          tz,
		Status:            models.WebinarDraft,
		CreatedBy:         c.MustGet(middleware.ContextUserID).(uuid.UUID),
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("create webinar failed", zap.Error(err))
		response.Internal(c, "failed to create webinar")
		return
	}
	response.Created(c, w)
}

// Update handles PATCH /webinars/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}

	var req struct {
		Title             *string               `json:"title"`
		Description       *string               `json:"description"`
		VideoURL          *string               `json:"video_url"`
		DurationSeconds   *int                  `json:"duration_seconds"`
		ChatEnabled       *bool                 `json:"chat_enabled"`
		CompletionPercent *int                  `json:"completion_percent"`
		Timezone          *string               `json:"timezone"`
		Status            *models.WebinarStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil {
		w.Title = *req.Title
	}
	if req.Description != nil {
		w.Description = *req.Description
	}
	if req.VideoURL != nil {
		w.VideoURL = *req.VideoURL
	}
	if req.DurationSeconds != nil {
		w.DurationSeconds = *req.DurationSeconds
	}
	if req.ChatEnabled != nil {
		w.ChatEnabled = *req.ChatEnabled
	}
	if req.CompletionPercent != nil {
		w.CompletionPercent = *req.CompletionPercent
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			response.BadRequest(c, "invalid timezone")
			return
		}
		w.Timezone = *req.Timezone
	}
	if req.Status != nil {
		w.Status = *req.Status
	}
	if err := h.repo.Update(c.Request.Context(), w); err != nil {
		h.logger.Error("update webinar failed", zap.Error(err))
		response.Internal(c, "failed to update webinar")
		return
	}
	response.OK(c, w)
}

// List handles GET /webinars (admin).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /webinars/:id (admin).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	cfg, err := h.repo.GetScheduleConfig(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load schedule config")
		return
	}
	response.OK(c, gin.H{"webinar": w, "schedule_config": cfg})
}

// PutSchedule handles PUT /webinars/:id/schedule (admin).
func (h *Handler) PutSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	var req ScheduleConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if msg := validateSchedule(&req); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	cfg := &models.ScheduleConfig{
		WebinarID:              id,
		EventType:              req.EventType,
		RecurringDays:          req.RecurringDays,
		RecurringTimes:         req.RecurringTimes,
		SpecificDates:          req.SpecificDates,
		BlackoutDates:          req.BlackoutDates,
		OnDemandEnabled:        req.OnDemandEnabled || req.EventType == models.EventOnDemandOnly,
		OnDemandUngated:        req.OnDemandUngated,
		JustInTimeEnabled:      req.JustInTimeEnabled,
		IntervalMinutes:        defaultInterval(req.IntervalMinutes),
		ReplayEnabled:          req.ReplayEnabled,
		ReplayUngated:          req.ReplayUngated,
		ReplayExpiresAfterDays: req.ReplayExpiresAfterDays,
		MaxSessionsToShow:      defaultMaxSessions(req.MaxSessionsToShow),
	}
	if err := h.repo.UpsertScheduleConfig(c.Request.Context(), cfg); err != nil {
		h.logger.Error("upsert schedule config failed", zap.Error(err))
		response.Internal(c, "failed to save schedule config")
		return
	}
	response.OK(c, cfg)
}

func validateSchedule(req *ScheduleConfigRequest) string {
	switch req.EventType {
	case models.EventRecurring:
		if len(req.RecurringDays) == 0 || len(req.RecurringTimes) == 0 {
			return "recurring schedule needs at least one day and one time"
		}
		for _, d := range req.RecurringDays {
			if d < 0 || d > 6 {
				return "recurring day must be 0 (Sunday) to 6 (Saturday)"
			}
		}
		for _, t := range req.RecurringTimes {
			if _, err := time.Parse("15:04", t); err != nil {
				return "recurring time must be HH:MM"
			}
		}
	case models.EventOneTime, models.EventSpecificDates:
		if len(req.SpecificDates) == 0 {
			return "schedule needs at least one date"
		}
	case models.EventOnDemandOnly:
		// no wall-clock sessions; nothing else to check
	default:
		return "unknown event type"
	}
	return ""
}

func defaultInterval(v int) int {
	if v <= 0 {
		return 15
	}
	return v
}

func defaultMaxSessions(v int) int {
	if v <= 0 {
		return 3
	}
	return v
}
