package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
	"github.com/Proton-105/pollbot/internal/ratelimit"
)

// RateLimit builds a filter that admits at most limit updates per chat within window.
// Limiter failures other than ErrLimitExceeded admit the update.
func RateLimit(limiter ratelimit.Limiter, limit int, window time.Duration, log *slog.Logger) handlers.Filter {
	if limiter == nil || limit <= 0 || window <= 0 {
		return AcceptAll
	}
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, update telebot.Update) bool {
		chatID, ok := handlers.ChatOf(update)
		if !ok {
			return true
		}

		result, err := limiter.Check(ctx, ratelimit.ChatKey(chatID), limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded):
			log.Warn("rate limit exceeded", slog.Int64("chat_id", chatID), slog.Int("update_id", update.ID))
			return false
		case err != nil:
			log.Warn("rate limiter error", slog.Int64("chat_id", chatID), slog.Any("error", err))
			return true
		case result != nil && !result.Allowed:
			return false
		default:
			return true
		}
	}
}
