package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	InitialBackoff    = 500 * time.Millisecond
	MaxBackoff        = 30 * time.Second
	BackoffMultiplier = 2.0
)

// Backoff yields exponentially growing delays between failed attempts.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	attempt int
}

func NewBackoff() *Backoff {
	return &Backoff{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
	}
}

// Next returns the delay for the upcoming attempt. A RetryAfter hint on err takes precedence.
func (b *Backoff) Next(err error) time.Duration {
	delay := b.calculate(b.attempt)
	b.attempt++

	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr != nil && transportErr.RetryAfter > delay {
		return transportErr.RetryAfter
	}

	return delay
}

// Reset starts the sequence over after a successful attempt.
func (b *Backoff) Reset() {
	b.attempt = 0
}

func (b *Backoff) calculate(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = InitialBackoff
	}
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = BackoffMultiplier
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = MaxBackoff
	}

	delay := float64(initial) * math.Pow(multiplier, float64(attempt))
	if delay > float64(maxDelay) {
		return maxDelay
	}

	return time.Duration(delay)
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
