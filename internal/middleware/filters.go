package middleware

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
)

// AcceptAll admits every update. Register it when no other admission rule applies,
// since a bot without filters dispatches nothing.
func AcceptAll(context.Context, telebot.Update) bool {
	return true
}

// OnlyChats admits updates from the listed chats. An empty list admits every chat.
func OnlyChats(chatIDs ...int64) handlers.Filter {
	if len(chatIDs) == 0 {
		return AcceptAll
	}

	allowed := make(map[int64]struct{}, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = struct{}{}
	}

	return func(_ context.Context, update telebot.Update) bool {
		chatID, ok := handlers.ChatOf(update)
		if !ok {
			return false
		}
		_, found := allowed[chatID]
		return found
	}
}

// All admits an update only when every filter admits it, stopping at the first rejection.
func All(filters ...handlers.Filter) handlers.Filter {
	return func(ctx context.Context, update telebot.Update) bool {
		for _, f := range filters {
			if f != nil && !f(ctx, update) {
				return false
			}
		}
		return true
	}
}

// Any admits an update when at least one filter admits it.
func Any(filters ...handlers.Filter) handlers.Filter {
	return func(ctx context.Context, update telebot.Update) bool {
		for _, f := range filters {
			if f != nil && f(ctx, update) {
				return true
			}
		}
		return false
	}
}
