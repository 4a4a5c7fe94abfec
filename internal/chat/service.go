package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/realtime"
	"github.com/evergreen-webinar/backend/pkg/queue"
)

var (
	ErrChatDisabled   = errors.New("chat disabled")
	ErrMessageTooLong = errors.New("message too long")
	ErrEmptyMessage   = errors.New("empty message")
	ErrRateLimited    = errors.New("rate limited")
)

// Service relays chat messages: persist first, then broadcast. A message
// that was broadcast but not stored would vanish from late joiners, so the
// insert always wins.
type Service struct {
	repo      *Repository
	hub       *realtime.Hub
	limiter   Limiter
	events    *queue.Queue // nil when Redis is not configured
	maxLength int
	logger    *zap.Logger
}

// NewService creates a chat service. events may be nil.
func NewService(repo *Repository, hub *realtime.Hub, limiter Limiter, events *queue.Queue, maxLength int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, hub: hub, limiter: limiter, events: events, maxLength: maxLength, logger: logger}
}

// SendViewer posts a message from a registered viewer.
func (s *Service) SendViewer(ctx context.Context, webinar *models.Webinar, reg *models.Registration, text string, now time.Time) (*models.ChatMessage, error) {
	if err := s.check(webinar, text); err != nil {
		return nil, err
	}
	ok, err := s.limiter.Allow(ctx, reg.ID.String(), now)
	if err != nil {
		// A broken limiter should not take chat down with it.
		s.logger.Warn("rate limiter error", zap.Error(err))
	} else if !ok {
		return nil, ErrRateLimited
	}

	regID := reg.ID
	msg, err := s.repo.InsertReal(ctx, webinar.ID, &regID, reg.DisplayName(), text, false)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	s.broadcast(msg)
	s.enqueueEvent(ctx, webinar.ID, &regID, now)
	return msg, nil
}

// SendModerator posts a message from an authoring user. Moderators are not
// rate limited.
func (s *Service) SendModerator(ctx context.Context, webinar *models.Webinar, senderName, text string) (*models.ChatMessage, error) {
	if err := s.check(webinar, text); err != nil {
		return nil, err
	}
	msg, err := s.repo.InsertReal(ctx, webinar.ID, nil, senderName, text, true)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	s.broadcast(msg)
	return msg, nil
}

// Hide hides a message and notifies connected clients so they can drop it.
func (s *Service) Hide(ctx context.Context, webinarID, messageID uuid.UUID) error {
	if err := s.repo.SetHidden(ctx, messageID, true); err != nil {
		return err
	}
	s.hub.BroadcastToWebinarAndPublish(webinarID, "chat_hidden", map[string]string{
		"message_id": messageID.String(),
	})
	return nil
}

// Timeline returns what a viewer at the given playback position should see:
// the scripted messages up to that offset merged with recent real traffic.
func (s *Service) Timeline(ctx context.Context, webinarID uuid.UUID, position int, since time.Time) ([]*models.ChatMessage, error) {
	simulated, err := s.repo.ListSimulatedUpTo(ctx, webinarID, position)
	if err != nil {
		return nil, err
	}
	real, err := s.repo.ListRealSince(ctx, webinarID, since, 100)
	if err != nil {
		return nil, err
	}
	return append(simulated, real...), nil
}

func (s *Service) check(webinar *models.Webinar, text string) error {
	if !webinar.ChatEnabled {
		return ErrChatDisabled
	}
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > s.maxLength {
		return ErrMessageTooLong
	}
	return nil
}

func (s *Service) broadcast(msg *models.ChatMessage) {
	// Publish only: the Redis subscriber broadcasts once for every instance,
	// so local clients never receive the message twice.
	s.hub.PublishToWebinarOnly(msg.WebinarID, "chat_message", msg)
}

func (s *Service) enqueueEvent(ctx context.Context, webinarID uuid.UUID, regID *uuid.UUID, now time.Time) {
	if s.events == nil {
		return
	}
	err := s.events.EnqueueEngagementEvent(ctx, queue.EngagementEventPayload{
		WebinarID:      webinarID,
		RegistrationID: regID,
		EventType:      "chat_message",
		OccurredAt:     now,
	})
	if err != nil {
		s.logger.Warn("enqueue chat event failed", zap.Error(err))
	}
}
