package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evergreen-webinar/backend/internal/models"
	"github.com/evergreen-webinar/backend/internal/schedule"
)

// Sentinel errors for the viewer access taxonomy. Handlers map these to
// structured JSON responses; none of them are retried server-side.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrReplayDisabled = errors.New("replay disabled")
)

// WaitingRoomError means the token is valid but the session is not yet open.
// StartsAt lets the client render a countdown and poll again.
type WaitingRoomError struct {
	StartsAt time.Time
}

func (e *WaitingRoomError) Error() string {
	return "session opens at " + e.StartsAt.Format(time.RFC3339)
}

// ReplayExpiredError is terminal for the viewer; ExpiredAt is included for
// client display.
type ReplayExpiredError struct {
	ExpiredAt time.Time
}

func (e *ReplayExpiredError) Error() string {
	return "replay expired at " + e.ExpiredAt.Format(time.RFC3339)
}

// Service issues and validates per-registration access tokens.
type Service struct {
	repo        *Repository
	sessionRepo *schedule.Repository
	earlyAccess time.Duration // waiting room opens this long before start
}

// NewService creates an access token service.
func NewService(repo *Repository, sessionRepo *schedule.Repository, earlyAccess time.Duration) *Service {
	return &Service{repo: repo, sessionRepo: sessionRepo, earlyAccess: earlyAccess}
}

// IssueToken generates a fresh token, retrying on the (astronomically
// unlikely) collision with an existing one.
func (s *Service) IssueToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.TokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("check token: %w", err)
		}
		if !exists {
			return token, nil
		}
	}
	return "", errors.New("token collision retries exhausted")
}

// Authenticate resolves a token to its registration without applying session
// gates. Used by chat, interaction and progress endpoints where the viewer is
// already past the access check.
func (s *Service) Authenticate(ctx context.Context, webinarID uuid.UUID, token string) (*models.Registration, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	reg, err := s.repo.GetByToken(ctx, token)
	return classifyLookup(reg, webinarID, err)
}

// classifyLookup separates an unknown or mismatched token (the viewer's fault,
// ErrInvalidToken) from a failed lookup (the database's fault, surfaced as-is
// so handlers return 500 instead of 401).
func classifyLookup(reg *models.Registration, webinarID uuid.UUID, err error) (*models.Registration, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg.WebinarID != webinarID {
		return nil, ErrInvalidToken
	}
	return reg, nil
}

// Validate applies the full access check for the watch page, in order:
// unknown token, replay gates, waiting room, then the idempotent joined_at
// side effect. Returns the registration and its session (nil for on-demand).
func (s *Service) Validate(ctx context.Context, webinar *models.Webinar, cfg *models.ScheduleConfig, token string, now time.Time) (*models.Registration, *models.Session, error) {
	reg, err := s.Authenticate(ctx, webinar.ID, token)
	if err != nil {
		return nil, nil, err
	}

	var session *models.Session
	if reg.SessionID != nil {
		session, err = s.sessionRepo.GetByID(ctx, *reg.SessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("load session: %w", err)
		}
	}

	if err := Gate(webinar, cfg, reg.SessionType, session, s.earlyAccess, now); err != nil {
		return nil, nil, err
	}

	if err := s.repo.MarkJoined(ctx, reg.ID); err != nil {
		return nil, nil, fmt.Errorf("mark joined: %w", err)
	}
	if reg.JoinedAt == nil {
		t := now
		reg.JoinedAt = &t
	}
	return reg, session, nil
}

// Gate applies the session-state checks for an already-authenticated
// registration. Pure; now is injected by the caller.
func Gate(webinar *models.Webinar, cfg *models.ScheduleConfig, regType models.RegistrationType, session *models.Session, earlyAccess time.Duration, now time.Time) error {
	switch regType {
	case models.RegReplay:
		if cfg == nil || !cfg.ReplayEnabled {
			return ErrReplayDisabled
		}
		if cfg.ReplayExpiresAfterDays != nil && session != nil {
			sessionEnd := session.ScheduledAt.Add(time.Duration(webinar.DurationSeconds) * time.Second)
			expiry := sessionEnd.Add(time.Duration(*cfg.ReplayExpiresAfterDays) * 24 * time.Hour)
			if now.After(expiry) {
				return &ReplayExpiredError{ExpiredAt: expiry}
			}
		}
	case models.RegScheduled, models.RegJustInTime:
		if session != nil && now.Before(session.ScheduledAt.Add(-earlyAccess)) {
			return &WaitingRoomError{StartsAt: session.ScheduledAt}
		}
	}
	return nil
}
