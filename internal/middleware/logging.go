package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
	"github.com/Proton-105/pollbot/pkg/logger"
)

// LogUpdates returns a bot middleware that logs every incoming update and passes it on unchanged.
func LogUpdates(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, update telebot.Update) (telebot.Update, error) {
		attrs := []any{
			slog.Int("update_id", update.ID),
			slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
		}
		if chatID, ok := handlers.ChatOf(update); ok {
			attrs = append(attrs, slog.Int64("chat_id", chatID))
		}
		switch {
		case update.Message != nil:
			attrs = append(attrs, slog.String("type", "message"))
		case update.Callback != nil:
			attrs = append(attrs, slog.String("type", "callback"))
		}

		log.Debug("update received", attrs...)
		return update, nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPLogging creates an HTTP middleware that logs request and response details.
func HTTPLogging(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info(
				"handled http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("correlation_id", logger.CorrelationIDFromContext(r.Context())),
			)
		})
	}
}
