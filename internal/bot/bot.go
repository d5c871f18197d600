package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
	"github.com/Proton-105/pollbot/internal/bot/keyboard"
	"github.com/Proton-105/pollbot/internal/telegram"
)

// ErrAlreadyRunning is returned by Start when the poll loop is active.
var ErrAlreadyRunning = stdErrors.New("bot is already running")

// Transport performs Bot API calls with already-marshaled parameters.
type Transport interface {
	MessageSender
	UpdateFetcher
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *telebot.ReplyMarkup) (*telegram.Result, error)
	SendDocument(ctx context.Context, chatID int64, document telegram.InputFile) (*telegram.Result, error)
	SendPhoto(ctx context.Context, chatID int64, photo telegram.InputFile, caption string, markup *telebot.ReplyMarkup) (*telegram.Result, error)
	SendChatAction(ctx context.Context, chatID int64, action telebot.ChatAction) (*telegram.Result, error)
}

// Config tunes the bot's dispatch and polling behaviour.
type Config struct {
	PollTimeout        time.Duration
	FetchFailurePolicy FetchFailurePolicy
	UnknownCommandText string
	CommandPrefix      string
}

// Bot ties the handler registry, dispatch pipeline and poll driver to a transport
// and exposes the registration surface to application code.
type Bot struct {
	transport Transport
	registry  *Registry
	pipeline  *Pipeline
	poller    *Poller
	log       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds a bot configured according to cfg.
func New(cfg Config, transport Transport, log *slog.Logger) (*Bot, error) {
	if transport == nil {
		return nil, stdErrors.New("bot: transport is required")
	}
	if log == nil {
		log = slog.Default()
	}

	policy, err := ParseFetchFailurePolicy(string(cfg.FetchFailurePolicy))
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	registry := NewRegistry()
	pipeline := NewPipeline(registry, transport, log)
	pipeline.SetUnknownCommandText(cfg.UnknownCommandText)
	pipeline.SetCommandPrefix(cfg.CommandPrefix)

	return &Bot{
		transport: transport,
		registry:  registry,
		pipeline:  pipeline,
		poller:    NewPoller(transport, pipeline, cfg.PollTimeout, policy, log),
		log:       log,
	}, nil
}

// OnCommand registers h for the command name (e.g. "/start") and returns h unchanged.
// Registering the same name again replaces the handler.
func (b *Bot) OnCommand(name string, h handlers.CommandHandler) handlers.CommandHandler {
	b.registry.RegisterCommand(name, h)
	return h
}

// OnEvent registers h for messages whose text satisfies p and returns h unchanged.
// Predicates are tested in registration order and only the first match runs.
func (b *Bot) OnEvent(p handlers.Predicate, h handlers.EventHandler) handlers.EventHandler {
	b.registry.RegisterEvent(p, h)
	return h
}

// OnNamedEvent is OnEvent with a stable key: re-registering the key replaces the route in place.
func (b *Bot) OnNamedEvent(key string, p handlers.Predicate, h handlers.EventHandler) handlers.EventHandler {
	b.registry.RegisterNamedEvent(key, p, h)
	return h
}

// OnButton registers h for button presses carrying callback data id and returns h unchanged.
// The first registration for an id wins; later ones are ignored.
func (b *Bot) OnButton(id string, h handlers.ButtonHandler) handlers.ButtonHandler {
	if !b.registry.RegisterButton(id, h) && h != nil {
		b.log.Debug("button handler already registered, ignoring", slog.String("callback_data", id))
	}
	return h
}

// AddMiddleware appends an update transform.
func (b *Bot) AddMiddleware(mw handlers.Middleware) {
	b.pipeline.Use(mw)
}

// AddMessageFilter appends a filter; updates are processed when any filter accepts them.
func (b *Bot) AddMessageFilter(f handlers.Filter) {
	b.pipeline.AddFilter(f)
}

// OnError sets the single error handler for per-update failures.
func (b *Bot) OnError(h handlers.ErrorHandler) {
	b.pipeline.OnError(h)
}

// HandleUpdate runs one update through the pipeline.
func (b *Bot) HandleUpdate(ctx context.Context, update telebot.Update) {
	b.pipeline.Process(ctx, update)
}

// Offset returns the next update id the poller will request.
func (b *Bot) Offset() int {
	return b.poller.Offset()
}

// Start runs the poll loop until ctx is cancelled, Stop is called, or a fetch failure ends it under PolicyStop.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.cancel = nil
		b.mu.Unlock()
		cancel()
	}()

	return b.poller.Run(ctx)
}

// Stop asks a running poll loop to finish.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.cancel()
}

// SendMessage sends text to chatID.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Result, error) {
	return b.transport.SendMessage(ctx, chatID, text, nil)
}

// SendMessageWithMarkup sends text with an inline keyboard.
func (b *Bot) SendMessageWithMarkup(ctx context.Context, chatID int64, text string, markup *keyboard.Markup) (*telegram.Result, error) {
	return b.transport.SendMessage(ctx, chatID, text, serialize(markup))
}

// EditMessageText replaces the text and keyboard of a previously sent message.
func (b *Bot) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *keyboard.Markup) (*telegram.Result, error) {
	return b.transport.EditMessageText(ctx, chatID, messageID, text, serialize(markup))
}

// SendDocument uploads a document to chatID.
func (b *Bot) SendDocument(ctx context.Context, chatID int64, document telegram.InputFile) (*telegram.Result, error) {
	return b.transport.SendDocument(ctx, chatID, document)
}

// SendPhoto uploads a photo with an optional caption and keyboard.
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, photo telegram.InputFile, caption string, markup *keyboard.Markup) (*telegram.Result, error) {
	return b.transport.SendPhoto(ctx, chatID, photo, caption, serialize(markup))
}

// SendChatAction shows a chat action such as telebot.Typing.
func (b *Bot) SendChatAction(ctx context.Context, chatID int64, action telebot.ChatAction) (*telegram.Result, error) {
	return b.transport.SendChatAction(ctx, chatID, action)
}

// SendButtons builds a keyboard with one row per element of rows and sends it with text.
func (b *Bot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]keyboard.Button) (*telegram.Result, error) {
	markup := keyboard.FromRows(rows)
	if err := markup.Validate(); err != nil {
		return nil, fmt.Errorf("send buttons: %w", err)
	}

	return b.transport.SendMessage(ctx, chatID, text, markup.Serialize())
}

func serialize(markup *keyboard.Markup) *telebot.ReplyMarkup {
	if markup == nil {
		return nil
	}
	return markup.Serialize()
}
