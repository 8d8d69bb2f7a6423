package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/alem-hub/progress-engine/internal/domain/quiz"
)

func TestMarkerKey(t *testing.T) {
	day := time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "marker:quiz_proposal:2:u1:2024-03-12",
		MarkerKey(quiz.ProposalScope("u1", day, time.UTC)))
	assert.Equal(t, "marker:quiz_preference:2:u1:do_not_ask:ev-9",
		MarkerKey(quiz.DoNotAskScope("u1", "ev-9")))
}

func TestMarkerKey_ColonInUserIDDoesNotCollide(t *testing.T) {
	owner := quiz.DoNotAskScope("u", "e")
	other := quiz.Scope{Type: quiz.MarkerPreference, UserID: "u:do_not_ask", Key: "e"}

	assert.Equal(t, "do_not_ask:e", owner.Key)
	assert.NotEqual(t, MarkerKey(owner), MarkerKey(other))
}

func TestCache_RejectsBadInputWithoutRoundTrip(t *testing.T) {
	// Nothing listens on this address; validation must fail before any I/O.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheFromClient(client)
	ctx := context.Background()

	assert.ErrorIs(t, cache.SetString(ctx, "", "v", 0), ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.SetString(ctx, "k", "v", -time.Second), ErrCacheInvalidTTL)

	_, err := cache.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
}
