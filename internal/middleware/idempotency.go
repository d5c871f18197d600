package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
	"github.com/Proton-105/pollbot/internal/idempotency"
)

// Dedupe builds a filter that admits each update once within ttl. The namespace separates
// bots sharing a store, since update ids are only unique per bot.
// Store failures admit the update.
func Dedupe(store idempotency.Store, namespace string, ttl time.Duration, log *slog.Logger) handlers.Filter {
	if store == nil || ttl <= 0 {
		return AcceptAll
	}
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, update telebot.Update) bool {
		key := updateKey(update)
		if key == "" {
			return true
		}

		first, err := store.MarkProcessed(ctx, idempotency.GenerateKey(namespace, key), ttl)
		if err != nil {
			log.Warn("dedupe store error", slog.Int("update_id", update.ID), slog.Any("error", err))
			return true
		}
		if !first {
			log.Info("duplicate update skipped", slog.Int("update_id", update.ID))
		}
		return first
	}
}

func updateKey(update telebot.Update) string {
	if update.ID != 0 {
		return fmt.Sprintf("update:%d", update.ID)
	}

	if cb := update.Callback; cb != nil && cb.ID != "" {
		return "cb:" + cb.ID
	}

	if msg := update.Message; msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return fmt.Sprintf("msg:%d:%d", chatID, msg.ID)
	}

	return ""
}
