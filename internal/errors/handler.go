package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/pollbot/pkg/logger"
	"github.com/Proton-105/pollbot/pkg/metrics"
)

// Handler is the central error sink: it logs, counts and optionally reports errors to Sentry.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle records err. It matches the bot's error callback signature.
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := h.log
	if log == nil {
		log = slog.Default()
	}

	severity := SeverityOf(err)
	attrs := []slog.Attr{
		slog.String("message", err.Error()),
		slog.String("severity", string(severity)),
		slog.Bool("retryable", IsRetryable(err)),
	}

	errType := "unknown"
	stage := ""

	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) && pipelineErr != nil {
		errType = "pipeline"
		stage = string(pipelineErr.Stage)
		attrs = append(attrs,
			slog.String("stage", stage),
			slog.Int("update_id", pipelineErr.UpdateID),
			slog.Bool("panic", pipelineErr.Panic),
		)
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr != nil {
		if errType == "unknown" {
			errType = "transport"
		}
		attrs = append(attrs,
			slog.String("kind", string(transportErr.Kind)),
			slog.String("method", transportErr.Method),
			slog.Int("code", transportErr.Code),
		)
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	log.LogAttrs(ctx, slog.LevelError, "bot error", attrs...)
	metrics.RecordError(errType, stage)

	if h.sentryEnabled && (severity == SeverityCritical || severity == SeverityHigh) {
		h.sendToSentry(ctx, err)
	}
}

func (h *Handler) sendToSentry(ctx context.Context, err error) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("severity", string(SeverityOf(err)))

		var pipelineErr *PipelineError
		if errors.As(err, &pipelineErr) && pipelineErr != nil {
			scope.SetTag("stage", string(pipelineErr.Stage))
		}

		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr != nil {
			scope.SetTag("kind", string(transportErr.Kind))
			scope.SetTag("method", transportErr.Method)
		}

		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		sentry.CaptureException(err)
	})
}
