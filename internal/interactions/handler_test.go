package interactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/chat"
)

func TestAllowEventCapsPerRegistration(t *testing.T) {
	h := &Handler{limiter: chat.NewLocalLimiter(3, time.Minute), logger: zap.NewNop()}
	ctx := context.Background()
	regA, regB := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, h.allowEvent(ctx, regA, now))
	}
	assert.False(t, h.allowEvent(ctx, regA, now), "fourth event in the window is blocked")
	assert.True(t, h.allowEvent(ctx, regB, now), "other registrations are unaffected")
}

func TestAllowEventWithoutLimiter(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}
	assert.True(t, h.allowEvent(context.Background(), uuid.New(), time.Now()))
}
