package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
	"github.com/Proton-105/pollbot/internal/idempotency"
	"github.com/Proton-105/pollbot/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func messageUpdate(id int, chatID int64) telebot.Update {
	return telebot.Update{
		ID: id,
		Message: &telebot.Message{
			ID:   id,
			Chat: &telebot.Chat{ID: chatID},
			Text: "hello",
		},
	}
}

type limiterMock struct {
	mock.Mock
}

func (m *limiterMock) Check(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	args := m.Called(ctx, key, limit, window)
	res, _ := args.Get(0).(*ratelimit.Result)
	return res, args.Error(1)
}

type storeMock struct {
	mock.Mock
}

func (m *storeMock) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func TestOnlyChats(t *testing.T) {
	ctx := context.Background()
	filter := OnlyChats(1, 2)

	assert.True(t, filter(ctx, messageUpdate(1, 1)))
	assert.True(t, filter(ctx, messageUpdate(2, 2)))
	assert.False(t, filter(ctx, messageUpdate(3, 3)))
	assert.False(t, filter(ctx, telebot.Update{ID: 4}))

	assert.True(t, OnlyChats()(ctx, messageUpdate(5, 99)))
}

func TestAllAndAny(t *testing.T) {
	ctx := context.Background()
	var calls int
	reject := handlers.Filter(func(context.Context, telebot.Update) bool { calls++; return false })
	accept := handlers.Filter(func(context.Context, telebot.Update) bool { calls++; return true })

	assert.False(t, All(reject, accept)(ctx, messageUpdate(1, 1)))
	assert.Equal(t, 1, calls, "All stops at the first rejection")

	calls = 0
	assert.True(t, Any(accept, reject)(ctx, messageUpdate(1, 1)))
	assert.Equal(t, 1, calls, "Any stops at the first acceptance")

	assert.True(t, All()(ctx, messageUpdate(1, 1)))
	assert.False(t, Any()(ctx, messageUpdate(1, 1)))
}

func TestRateLimit_RejectsAfterLimit(t *testing.T) {
	ctx := context.Background()
	filter := RateLimit(ratelimit.NewMemoryLimiter(testLogger()), 2, time.Minute, testLogger())

	assert.True(t, filter(ctx, messageUpdate(1, 7)))
	assert.True(t, filter(ctx, messageUpdate(2, 7)))
	assert.False(t, filter(ctx, messageUpdate(3, 7)))
	assert.True(t, filter(ctx, messageUpdate(4, 8)), "other chats keep their own budget")
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	limiter := new(limiterMock)
	limiter.On("Check", mock.Anything, "chat:7", 5, time.Second).Return(nil, errors.New("redis down"))

	filter := RateLimit(limiter, 5, time.Second, testLogger())

	assert.True(t, filter(context.Background(), messageUpdate(1, 7)))
	limiter.AssertExpectations(t)
}

func TestRateLimit_SkipsUpdatesWithoutChat(t *testing.T) {
	limiter := new(limiterMock)
	filter := RateLimit(limiter, 1, time.Second, testLogger())

	assert.True(t, filter(context.Background(), telebot.Update{ID: 1}))
	limiter.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDedupe_AdmitsEachUpdateOnce(t *testing.T) {
	ctx := context.Background()
	filter := Dedupe(idempotency.NewMemoryStore(), "bot-a", time.Minute, testLogger())

	assert.True(t, filter(ctx, messageUpdate(10, 1)))
	assert.False(t, filter(ctx, messageUpdate(10, 1)))
	assert.True(t, filter(ctx, messageUpdate(11, 1)))
}

func TestDedupe_NamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := idempotency.NewMemoryStore()

	assert.True(t, Dedupe(store, "bot-a", time.Minute, testLogger())(ctx, messageUpdate(10, 1)))
	assert.True(t, Dedupe(store, "bot-b", time.Minute, testLogger())(ctx, messageUpdate(10, 1)))
}

func TestDedupe_FailsOpenOnStoreError(t *testing.T) {
	store := new(storeMock)
	store.On("MarkProcessed", mock.Anything, mock.AnythingOfType("string"), time.Minute).Return(false, errors.New("boom"))

	filter := Dedupe(store, "ns", time.Minute, testLogger())

	assert.True(t, filter(context.Background(), messageUpdate(1, 1)))
	store.AssertExpectations(t)
}

func TestLogUpdates_PassesUpdateThrough(t *testing.T) {
	update := messageUpdate(3, 4)

	got, err := LogUpdates(testLogger())(context.Background(), update)
	require.NoError(t, err)
	assert.Equal(t, update, got)
}

func TestHTTPLogging_PreservesResponse(t *testing.T) {
	handler := HTTPLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Test", "1")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "short and stout", rec.Body.String())
}
