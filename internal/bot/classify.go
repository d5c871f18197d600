package bot

import (
	stdErrors "errors"
	"strings"

	telebot "gopkg.in/telebot.v3"
)

// DefaultCommandPrefix marks message text as a command.
const DefaultCommandPrefix = "/"

// RouteKind is the dispatch category of an update.
type RouteKind string

const (
	RouteCommand  RouteKind = "command"
	RouteEvent    RouteKind = "event"
	RouteButton   RouteKind = "button"
	RouteUnrouted RouteKind = "unrouted"
)

var errCallbackWithoutMessage = stdErrors.New("callback query carries no originating message")

// Route is the classification of a single update.
type Route struct {
	Kind    RouteKind
	ChatID  int64
	Command string
	Args    []string
	Text    string
	Data    string
}

// Classify inspects the populated variant of update. Messages take precedence over callback queries.
func Classify(update telebot.Update, prefix string) (Route, error) {
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}

	if msg := update.Message; msg != nil {
		if msg.Chat == nil {
			return Route{}, stdErrors.New("message carries no chat")
		}
		if msg.Text == "" {
			return Route{Kind: RouteUnrouted, ChatID: msg.Chat.ID}, nil
		}

		fields := strings.Fields(msg.Text)
		if strings.HasPrefix(msg.Text, prefix) && len(fields) > 0 {
			return Route{
				Kind:    RouteCommand,
				ChatID:  msg.Chat.ID,
				Command: fields[0],
				Args:    fields[1:],
				Text:    msg.Text,
			}, nil
		}

		return Route{Kind: RouteEvent, ChatID: msg.Chat.ID, Text: msg.Text}, nil
	}

	if cb := update.Callback; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return Route{}, errCallbackWithoutMessage
		}

		return Route{Kind: RouteButton, ChatID: cb.Message.Chat.ID, Data: cb.Data}, nil
	}

	return Route{Kind: RouteUnrouted}, nil
}
