package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Proton-105/pollbot/internal/bot/keyboard"
)

const listAction = "list"

// ListPages is the number of pages /list browses through.
const ListPages = 3

// List shows the first page of a paged listing; the page buttons are served by ListPage.
func List(sender Sender) CommandHandler {
	return func(ctx context.Context, chatID int64, _ []string) error {
		return sendPage(ctx, sender, chatID, 1)
	}
}

// ListPage shows a specific page.
func ListPage(sender Sender, page int) ButtonHandler {
	return func(ctx context.Context, chatID int64) error {
		return sendPage(ctx, sender, chatID, page)
	}
}

// ListButtonID returns the callback data of the button leading to page.
func ListButtonID(page int) string {
	id, _ := keyboard.EncodeCallback(listAction, strconv.Itoa(page))
	return id
}

func sendPage(ctx context.Context, sender Sender, chatID int64, page int) error {
	row, err := keyboard.PaginationRow(listAction, page, ListPages)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Page %d of %d", page, ListPages)
	if _, err := sender.SendButtons(ctx, chatID, text, [][]keyboard.Button{row}); err != nil {
		return fmt.Errorf("send page %d: %w", page, err)
	}
	return nil
}

// RegisterDefaults attaches the built-in commands, greeting event and menu buttons to r.
func RegisterDefaults(r Registrar, sender Sender) {
	r.OnCommand("/start", Start(sender))
	r.OnCommand("/help", Help(sender))
	r.OnCommand("/echo", Echo(sender))
	r.OnCommand("/list", List(sender))

	r.OnEvent(ContainsFold("hello", "hi there"), Reply(sender, "Hello! Type /help to see what I can do."))

	r.OnButton(ButtonHelp, Reply(sender, helpText))
	r.OnButton(ButtonAbout, Reply(sender, aboutText))
	for page := 1; page <= ListPages; page++ {
		r.OnButton(ListButtonID(page), ListPage(sender, page))
	}
}
