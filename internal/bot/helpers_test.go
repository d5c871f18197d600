package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/telegram"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textUpdate(id int, chatID int64, text string) telebot.Update {
	return telebot.Update{
		ID: id,
		Message: &telebot.Message{
			ID:   id,
			Chat: &telebot.Chat{ID: chatID},
			Text: text,
		},
	}
}

func callbackUpdate(id int, chatID int64, data string) telebot.Update {
	return telebot.Update{
		ID: id,
		Callback: &telebot.Callback{
			ID:      "cb",
			Data:    data,
			Message: &telebot.Message{ID: 1, Chat: &telebot.Chat{ID: chatID}},
		},
	}
}

func acceptAll(context.Context, telebot.Update) bool { return true }

type sentMessage struct {
	ChatID int64
	Text   string
	Markup *telebot.ReplyMarkup
}

type fetchCall struct {
	Offset  int
	Timeout time.Duration
}

type batch struct {
	updates []telebot.Update
	err     error
}

// fakeTransport serves queued getUpdates batches and records outgoing messages.
// Once the queue is drained, drained is invoked and GetUpdates blocks until ctx is done.
type fakeTransport struct {
	mu      sync.Mutex
	batches []batch
	fetches []fetchCall
	sent    []sentMessage
	sendErr error
	drained func()
}

func (f *fakeTransport) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telebot.Update, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, fetchCall{Offset: offset, Timeout: timeout})
	if len(f.batches) > 0 {
		next := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return next.updates, next.err
	}
	drained := f.drained
	f.mu.Unlock()

	if drained != nil {
		drained()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (*telegram.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Markup: markup})
	return &telegram.Result{OK: true}, nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, chatID int64, _ int, text string, markup *telebot.ReplyMarkup) (*telegram.Result, error) {
	return f.SendMessage(context.Background(), chatID, text, markup)
}

func (f *fakeTransport) SendDocument(context.Context, int64, telegram.InputFile) (*telegram.Result, error) {
	return &telegram.Result{OK: true}, nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, _ telegram.InputFile, caption string, markup *telebot.ReplyMarkup) (*telegram.Result, error) {
	return f.SendMessage(context.Background(), chatID, caption, markup)
}

func (f *fakeTransport) SendChatAction(context.Context, int64, telebot.ChatAction) (*telegram.Result, error) {
	return &telegram.Result{OK: true}, nil
}

func (f *fakeTransport) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeTransport) Fetches() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.fetches...)
}

// errorRecorder collects errors passed to an error handler.
type errorRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errorRecorder) Handle(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *errorRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
