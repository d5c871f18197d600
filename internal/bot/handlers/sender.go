package handlers

import (
	"context"

	"github.com/Proton-105/pollbot/internal/bot/keyboard"
	"github.com/Proton-105/pollbot/internal/telegram"
)

// Sender is the outbound surface the built-in handlers reply through.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Result, error)
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]keyboard.Button) (*telegram.Result, error)
}

// Registrar is the registration surface the built-in handlers attach to.
type Registrar interface {
	OnCommand(name string, h CommandHandler) CommandHandler
	OnEvent(p Predicate, h EventHandler) EventHandler
	OnButton(id string, h ButtonHandler) ButtonHandler
}
