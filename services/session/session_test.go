package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	s := NewMemoryStore().(*memoryStore)
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "expired", now.Add(-time.Second)))

	revoked, err := s.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = s.IsRevoked(ctx, "expired")
	assert.False(t, revoked, "already expired tokens are not tracked")

	revoked, _ = s.IsRevoked(ctx, "b")
	assert.False(t, revoked)

	now = now.Add(time.Hour)
	revoked, _ = s.IsRevoked(ctx, "a")
	assert.False(t, revoked, "revocation lapses with the token")

	require.NoError(t, s.Revoke(ctx, "c", now.Add(time.Minute)))
	assert.Len(t, s.revoked, 1, "lapsed entries are evicted")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	s := New(client)
	ctx := context.Background()
	jti := uuid.New().String()

	revoked, err := s.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, jti, time.Now().Add(time.Minute)))
	revoked, err = s.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}
