package analytics

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/webinars"
	"github.com/evergreen-webinar/backend/pkg/response"
)

// Handler serves the admin analytics endpoints.
type Handler struct {
	repo        *Repository
	webinarRepo *webinars.Repository
	logger      *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(repo *Repository, webinarRepo *webinars.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, webinarRepo: webinarRepo, logger: logger}
}

// Summary handles GET /admin/webinars/:id/analytics/summary.
func (h *Handler) Summary(c *gin.Context) {
	w, facts, ok := h.load(c)
	if !ok {
		return
	}

	funnel := ComputeFunnel(facts)
	byType := make(map[string]int)
	totalMaxPos := 0
	for _, f := range facts {
		byType[f.SessionType]++
		if f.Joined {
			totalMaxPos += f.MaxVideoPosition
		}
	}
	avgWatched := 0
	if funnel.Joined > 0 {
		avgWatched = totalMaxPos / funnel.Joined
	}

	events, err := h.repo.EventCounts(c.Request.Context(), w.ID)
	if err != nil {
		h.logger.Error("event counts failed", zap.Error(err))
		response.Internal(c, "failed to aggregate")
		return
	}

	response.OK(c, gin.H{
		"webinar_id":           w.ID,
		"registrations":        funnel.Registered,
		"registrations_by_type": byType,
		"attended":             funnel.Joined,
		"completed":            funnel.Completed,
		"avg_seconds_watched":  avgWatched,
		"event_counts":         events,
	})
}

// Funnel handles GET /admin/webinars/:id/analytics/funnel.
func (h *Handler) Funnel(c *gin.Context) {
	_, facts, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, ComputeFunnel(facts))
}

// Dropoff handles GET /admin/webinars/:id/analytics/dropoff.
func (h *Handler) Dropoff(c *gin.Context) {
	w, facts, ok := h.load(c)
	if !ok {
		return
	}
	buckets := BucketDropoff(facts, w.DurationSeconds)
	response.OK(c, gin.H{
		"bucket_count": DropoffBuckets,
		"buckets":      buckets,
		"retention":    RetentionCurve(buckets),
	})
}

// ChatActivity handles GET /admin/webinars/:id/analytics/chat-activity.
func (h *Handler) ChatActivity(c *gin.Context) {
	w, ok := h.webinar(c)
	if !ok {
		return
	}
	simulated, err := h.repo.SimulatedChatByMinute(c.Request.Context(), w.ID)
	if err != nil {
		h.logger.Error("simulated chat counts failed", zap.Error(err))
		response.Internal(c, "failed to aggregate")
		return
	}
	real, err := h.repo.RealChatByMinute(c.Request.Context(), w.ID)
	if err != nil {
		h.logger.Error("real chat counts failed", zap.Error(err))
		response.Internal(c, "failed to aggregate")
		return
	}
	uniqueChatters, topSenders, err := h.repo.ChatSenderStats(c.Request.Context(), w.ID, 5)
	if err != nil {
		h.logger.Error("chat sender stats failed", zap.Error(err))
		response.Internal(c, "failed to aggregate")
		return
	}

	timeline := MergeChatActivity(simulated, real)
	response.OK(c, gin.H{
		"timeline":        timeline,
		"peak_minute":     PeakMinute(timeline),
		"unique_chatters": uniqueChatters,
		"top_senders":     topSenders,
	})
}

func (h *Handler) webinar(c *gin.Context) (*models.Webinar, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return nil, false
	}
	w, err := h.webinarRepo.GetByID(c.Request.Context(), id)
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return nil, false
	}
	return w, true
}

func (h *Handler) load(c *gin.Context) (*models.Webinar, []RegistrationFacts, bool) {
	w, ok := h.webinar(c)
	if !ok {
		return nil, nil, false
	}
	facts, err := h.repo.FetchRegistrationFacts(c.Request.Context(), w.ID)
	if err != nil {
		h.logger.Error("fetch registration facts failed", zap.Error(err))
		response.Internal(c, "failed to aggregate")
		return nil, nil, false
	}
	ApplyCompletionThreshold(facts, w.DurationSeconds, w.CompletionPercent)
	return w, facts, true
}
