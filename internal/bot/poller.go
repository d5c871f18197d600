package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	errors "github.com/Proton-105/pollbot/internal/errors"
	"github.com/Proton-105/pollbot/pkg/metrics"
)

// DefaultPollTimeout bounds each long-poll request.
const DefaultPollTimeout = 10 * time.Second

// FetchFailurePolicy decides what the poll loop does when getUpdates fails.
type FetchFailurePolicy string

const (
	// PolicyRetry logs the failure and retries after a backoff delay.
	PolicyRetry FetchFailurePolicy = "retry"
	// PolicyStop ends Run with the transport error.
	PolicyStop FetchFailurePolicy = "stop"
	// PolicyReport passes the failure to the error handler, then retries after a backoff delay.
	PolicyReport FetchFailurePolicy = "report"
)

// ParseFetchFailurePolicy validates a textual policy name.
func ParseFetchFailurePolicy(s string) (FetchFailurePolicy, error) {
	switch p := FetchFailurePolicy(s); p {
	case PolicyRetry, PolicyStop, PolicyReport:
		return p, nil
	case "":
		return PolicyRetry, nil
	default:
		return "", fmt.Errorf("unknown fetch failure policy %q", s)
	}
}

// UpdateFetcher is the long-poll part of the transport.
type UpdateFetcher interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telebot.Update, error)
}

// Poller repeatedly fetches updates with an advancing offset and feeds them to the pipeline.
// The offset lives in memory only.
type Poller struct {
	fetcher  UpdateFetcher
	pipeline *Pipeline
	timeout  time.Duration
	policy   FetchFailurePolicy
	backoff  *errors.Backoff
	log      *slog.Logger

	offset int
}

// NewPoller builds a Poller.
func NewPoller(fetcher UpdateFetcher, pipeline *Pipeline, timeout time.Duration, policy FetchFailurePolicy, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if policy == "" {
		policy = PolicyRetry
	}

	return &Poller{
		fetcher:  fetcher,
		pipeline: pipeline,
		timeout:  timeout,
		policy:   policy,
		backoff:  errors.NewBackoff(),
		log:      log,
	}
}

// Offset returns the next update id to request.
func (p *Poller) Offset() int {
	return p.offset
}

// Run polls until ctx is cancelled (returning nil) or, under PolicyStop, a fetch fails.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller started", slog.Duration("timeout", p.timeout), slog.String("policy", string(p.policy)))

	for {
		if ctx.Err() != nil {
			p.log.Info("poller stopped", slog.Int("offset", p.offset))
			return nil
		}

		err := p.PollOnce(ctx)
		if err == nil {
			p.backoff.Reset()
			continue
		}

		if ctx.Err() != nil {
			p.log.Info("poller stopped", slog.Int("offset", p.offset))
			return nil
		}

		switch p.policy {
		case PolicyStop:
			p.log.Error("fetching updates failed, stopping", slog.Any("error", err))
			return fmt.Errorf("fetch updates: %w", err)
		case PolicyReport:
			p.pipeline.ReportError(ctx, err)
		}

		delay := p.backoff.Next(err)
		p.log.Warn("fetching updates failed, retrying",
			slog.Any("error", err),
			slog.Duration("delay", delay),
			slog.Bool("retryable", errors.IsRetryable(err)),
		)

		if errors.Sleep(ctx, delay) != nil {
			p.log.Info("poller stopped", slog.Int("offset", p.offset))
			return nil
		}
	}
}

// PollOnce performs one fetch and dispatches the batch in order, advancing the offset
// past each update as soon as it has been processed, whether or not its handler failed.
func (p *Poller) PollOnce(ctx context.Context) error {
	updates, err := p.fetcher.GetUpdates(ctx, p.offset, p.timeout)
	if err != nil {
		metrics.RecordPollCycle("error")
		return err
	}

	if len(updates) == 0 {
		metrics.RecordPollCycle("empty")
		return nil
	}

	metrics.RecordPollCycle("updates")
	p.log.Debug("received updates", slog.Int("count", len(updates)), slog.Int("offset", p.offset))

	for _, update := range updates {
		if ctx.Err() != nil {
			return nil
		}

		p.pipeline.Process(ctx, update)
		p.offset = update.ID + 1
		metrics.SetPollOffset(p.offset)
	}

	return nil
}
