package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"
)

// CommandHandler processes a command; args are the whitespace-separated tokens after the command name.
type CommandHandler func(ctx context.Context, chatID int64, args []string) error

// EventHandler processes free text matched by a Predicate.
type EventHandler func(ctx context.Context, chatID int64) error

// ButtonHandler processes an inline button press.
type ButtonHandler func(ctx context.Context, chatID int64) error

// Predicate decides whether an EventHandler applies to a message text.
type Predicate func(text string) bool

// Middleware transforms an update before filtering. A returned error aborts the update.
type Middleware func(ctx context.Context, update telebot.Update) (telebot.Update, error)

// Filter admits an update into classification and dispatch.
type Filter func(ctx context.Context, update telebot.Update) bool

// ErrorHandler receives failures raised while an update was processed.
type ErrorHandler func(ctx context.Context, err error)

// ChatOf returns the chat an update belongs to, if any.
func ChatOf(update telebot.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID, true
	case update.Callback != nil && update.Callback.Message != nil && update.Callback.Message.Chat != nil:
		return update.Callback.Message.Chat.ID, true
	default:
		return 0, false
	}
}
