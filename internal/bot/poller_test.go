package bot

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	errors "github.com/Proton-105/pollbot/internal/errors"
)

func fastBackoff() *errors.Backoff {
	return &errors.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1}
}

func newTestPoller(transport *fakeTransport, policy FetchFailurePolicy) (*Poller, *Registry, *errorRecorder) {
	registry := NewRegistry()
	recorder := &errorRecorder{}

	pipeline := NewPipeline(registry, transport, testLogger())
	pipeline.AddFilter(acceptAll)
	pipeline.OnError(recorder.Handle)

	poller := NewPoller(transport, pipeline, 3*time.Second, policy, testLogger())
	poller.backoff = fastBackoff()
	return poller, registry, recorder
}

func runUntilDrained(t *testing.T, poller *Poller, transport *fakeTransport) error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transport.drained = cancel

	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
		return nil
	}
}

func TestPoller_OffsetAdvancesPastFailedHandler(t *testing.T) {
	transport := &fakeTransport{batches: []batch{{updates: []telebot.Update{
		textUpdate(5, 1, "/run"),
		textUpdate(6, 1, "/run"),
		textUpdate(7, 1, "/run"),
	}}}}
	poller, registry, recorder := newTestPoller(transport, PolicyRetry)

	var seen []int
	registry.RegisterCommand("/run", func(_ context.Context, _ int64, _ []string) error {
		id := len(seen) + 5
		seen = append(seen, id)
		if id == 6 {
			return stdErrors.New("handler failed")
		}
		return nil
	})

	require.NoError(t, runUntilDrained(t, poller, transport))

	assert.Equal(t, []int{5, 6, 7}, seen)
	assert.Equal(t, 8, poller.Offset())
	require.Len(t, recorder.Errors(), 1)

	fetches := transport.Fetches()
	require.Len(t, fetches, 2)
	assert.Equal(t, fetchCall{Offset: 0, Timeout: 3 * time.Second}, fetches[0])
	assert.Equal(t, 8, fetches[1].Offset)
}

func TestPoller_EmptyBatchKeepsOffset(t *testing.T) {
	transport := &fakeTransport{batches: []batch{
		{updates: []telebot.Update{textUpdate(10, 1, "x")}},
		{updates: nil},
	}}
	poller, _, _ := newTestPoller(transport, PolicyRetry)

	require.NoError(t, runUntilDrained(t, poller, transport))

	fetches := transport.Fetches()
	require.Len(t, fetches, 3)
	assert.Equal(t, 11, fetches[1].Offset)
	assert.Equal(t, 11, fetches[2].Offset)
}

func TestPoller_RetryPolicyKeepsPolling(t *testing.T) {
	fetchErr := errors.NewNetworkError("getUpdates", stdErrors.New("connection refused"))
	transport := &fakeTransport{batches: []batch{
		{err: fetchErr},
		{updates: []telebot.Update{textUpdate(1, 1, "/start")}},
	}}
	poller, registry, recorder := newTestPoller(transport, PolicyRetry)

	var started bool
	registry.RegisterCommand("/start", func(context.Context, int64, []string) error { started = true; return nil })

	require.NoError(t, runUntilDrained(t, poller, transport))

	assert.True(t, started)
	assert.Empty(t, recorder.Errors(), "retry does not report fetch failures")
	assert.Equal(t, 2, poller.Offset())
}

func TestPoller_ReportPolicyCallsErrorHandler(t *testing.T) {
	fetchErr := errors.NewRemoteError("getUpdates", 502, "Bad Gateway", 0)
	transport := &fakeTransport{batches: []batch{{err: fetchErr}}}
	poller, _, recorder := newTestPoller(transport, PolicyReport)

	require.NoError(t, runUntilDrained(t, poller, transport))

	errs := recorder.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], fetchErr)
}

func TestPoller_StopPolicyReturnsError(t *testing.T) {
	fetchErr := errors.NewRemoteError("getUpdates", 401, "Unauthorized", 0)
	transport := &fakeTransport{batches: []batch{{err: fetchErr}}}
	poller, _, _ := newTestPoller(transport, PolicyStop)

	err := poller.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Len(t, transport.Fetches(), 1)
}

func TestPoller_CancelledContextReturnsNil(t *testing.T) {
	transport := &fakeTransport{}
	poller, _, _ := newTestPoller(transport, PolicyStop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, poller.Run(ctx))
	assert.Empty(t, transport.Fetches())
}

func TestPoller_CancelMidBatchStopsBeforeRemainingUpdates(t *testing.T) {
	transport := &fakeTransport{batches: []batch{{updates: []telebot.Update{
		textUpdate(1, 1, "/stop"),
		textUpdate(2, 1, "/never"),
	}}}}
	poller, registry, _ := newTestPoller(transport, PolicyRetry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry.RegisterCommand("/stop", func(context.Context, int64, []string) error { cancel(); return nil })
	registry.RegisterCommand("/never", func(context.Context, int64, []string) error {
		t.Error("update after cancellation was dispatched")
		return nil
	})

	require.NoError(t, poller.Run(ctx))
	assert.Equal(t, 2, poller.Offset())
}

func TestParseFetchFailurePolicy(t *testing.T) {
	for _, name := range []string{"retry", "stop", "report"} {
		p, err := ParseFetchFailurePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, FetchFailurePolicy(name), p)
	}

	p, err := ParseFetchFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRetry, p)

	_, err = ParseFetchFailurePolicy("explode")
	assert.Error(t, err)
}
