package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Proton-105/pollbot/internal/bot/keyboard"
)

const (
	welcomeText = "Welcome! Pick an option below or type /help."
	helpText    = "Available commands:\n/start - show the main menu\n/help - list commands\n/echo <text> - repeat text\n/list - browse pages"
	aboutText   = "A long-polling bot built on the Telegram Bot API."

	ButtonHelp  = "help"
	ButtonAbout = "about"
)

// Start greets the user and shows the main menu.
func Start(sender Sender) CommandHandler {
	return func(ctx context.Context, chatID int64, _ []string) error {
		rows := [][]keyboard.Button{
			{keyboard.NewButton("Help", ButtonHelp), keyboard.NewButton("About", ButtonAbout)},
		}
		if _, err := sender.SendButtons(ctx, chatID, welcomeText, rows); err != nil {
			return fmt.Errorf("send welcome: %w", err)
		}
		return nil
	}
}

// Help lists the available commands.
func Help(sender Sender) CommandHandler {
	return func(ctx context.Context, chatID int64, _ []string) error {
		_, err := sender.SendMessage(ctx, chatID, helpText)
		return err
	}
}

// Echo repeats the command arguments back.
func Echo(sender Sender) CommandHandler {
	return func(ctx context.Context, chatID int64, args []string) error {
		text := strings.Join(args, " ")
		if text == "" {
			text = "Usage: /echo <text>"
		}
		_, err := sender.SendMessage(ctx, chatID, text)
		return err
	}
}

// Reply answers with a fixed text; it fits both events and buttons.
func Reply(sender Sender, text string) func(ctx context.Context, chatID int64) error {
	return func(ctx context.Context, chatID int64) error {
		_, err := sender.SendMessage(ctx, chatID, text)
		return err
	}
}

// ContainsFold matches texts containing any of words, ignoring case.
func ContainsFold(words ...string) Predicate {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}

	return func(text string) bool {
		text = strings.ToLower(text)
		for _, w := range lowered {
			if w != "" && strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}
