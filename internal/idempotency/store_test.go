package idempotency

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_MarkProcessed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "update:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "update:1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(2 * time.Hour)

	afterExpiry, err := store.MarkProcessed(ctx, "update:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, afterExpiry)
}

func TestRedisStore_PropagatesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	store := NewRedisStore(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := store.MarkProcessed(context.Background(), "update:1", time.Hour)
	assert.Error(t, err)
}

func TestMemoryStore_MarkProcessed(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	first, _ := store.MarkProcessed(ctx, "a", time.Minute)
	again, _ := store.MarkProcessed(ctx, "a", time.Minute)
	other, _ := store.MarkProcessed(ctx, "b", time.Minute)
	assert.True(t, first)
	assert.False(t, again)
	assert.True(t, other)

	now = now.Add(2 * time.Minute)
	expired, _ := store.MarkProcessed(ctx, "a", time.Minute)
	assert.True(t, expired)
	assert.Len(t, store.expires, 1)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("bot", 1), GenerateKey("bot", 1))
	assert.NotEqual(t, GenerateKey("bot", 1), GenerateKey("bot", 2))
	assert.Len(t, GenerateKey("secret-token"), 64)
}
