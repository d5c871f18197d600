package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
	errors "github.com/Proton-105/pollbot/internal/errors"
	"github.com/Proton-105/pollbot/internal/telegram"
	"github.com/Proton-105/pollbot/pkg/logger"
	"github.com/Proton-105/pollbot/pkg/metrics"
)

// DefaultUnknownCommandText is sent when a command has no registered handler.
const DefaultUnknownCommandText = "Unknown command. Please try again."

// Update outcomes reported to metrics.
const (
	outcomeHandled   = "handled"
	outcomeFallback  = "fallback"
	outcomeUnmatched = "unmatched"
	outcomeDropped   = "dropped"
	outcomeFailed    = "failed"
)

// MessageSender is the part of the transport the pipeline needs for its own replies.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (*telegram.Result, error)
}

// Pipeline runs a single update through middleware, filters, classification and dispatch.
// Failures are contained per update and handed to the error handler.
type Pipeline struct {
	registry           *Registry
	sender             MessageSender
	commandPrefix      string
	unknownCommandText string
	log                *slog.Logger

	mu          sync.RWMutex
	middlewares []handlers.Middleware
	filters     []handlers.Filter
	onError     handlers.ErrorHandler
}

// NewPipeline builds a Pipeline routing into registry and replying through sender.
func NewPipeline(registry *Registry, sender MessageSender, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	return &Pipeline{
		registry:           registry,
		sender:             sender,
		commandPrefix:      DefaultCommandPrefix,
		unknownCommandText: DefaultUnknownCommandText,
		log:                log,
		middlewares:        make([]handlers.Middleware, 0),
		filters:            make([]handlers.Filter, 0),
	}
}

// SetUnknownCommandText overrides the fallback reply for unregistered commands.
func (p *Pipeline) SetUnknownCommandText(text string) {
	if text == "" {
		return
	}
	p.unknownCommandText = text
}

// SetCommandPrefix overrides the character sequence that marks a command.
func (p *Pipeline) SetCommandPrefix(prefix string) {
	if prefix == "" {
		return
	}
	p.commandPrefix = prefix
}

// Use appends a middleware; middlewares run in registration order.
func (p *Pipeline) Use(mw handlers.Middleware) {
	if mw == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.middlewares = append(p.middlewares, mw)
}

// AddFilter appends a filter. An update is dispatched once any filter accepts it;
// with no filters registered nothing is dispatched.
func (p *Pipeline) AddFilter(f handlers.Filter) {
	if f == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = append(p.filters, f)
}

// OnError sets the error handler, replacing any previous one.
func (p *Pipeline) OnError(h handlers.ErrorHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = h
}

// Process handles one update. It never returns an error and never panics.
func (p *Pipeline) Process(ctx context.Context, update telebot.Update) {
	ctx = logger.WithCorrelationID(ctx)
	log := p.log.With(slog.Int("update_id", update.ID), slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)))

	kind, outcome, err := p.process(ctx, log, update)
	metrics.RecordUpdate(string(kind), outcome)

	if err != nil {
		p.ReportError(ctx, err)
	}
}

// ReportError hands err to the registered error handler, or discards it when there is none.
func (p *Pipeline) ReportError(ctx context.Context, err error) {
	p.mu.RLock()
	onError := p.onError
	p.mu.RUnlock()

	if onError == nil {
		p.log.Debug("discarding error, no error handler registered", slog.Any("error", err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic recovered in error handler", slog.Any("panic", r), slog.Any("error", err))
		}
	}()

	onError(ctx, err)
}

func (p *Pipeline) process(ctx context.Context, log *slog.Logger, update telebot.Update) (RouteKind, string, error) {
	updated, err := p.applyMiddlewares(ctx, update)
	if err != nil {
		return RouteUnrouted, outcomeFailed, err
	}
	update = updated

	accepted, err := p.applyFilters(ctx, update)
	if err != nil {
		return RouteUnrouted, outcomeFailed, err
	}
	if !accepted {
		log.Debug("update rejected by filters")
		return RouteUnrouted, outcomeDropped, nil
	}

	route, err := Classify(update, p.commandPrefix)
	if err != nil {
		return RouteUnrouted, outcomeFailed, errors.NewPipelineError(errors.StageClassify, update.ID, err)
	}

	log.Debug("dispatching update", slog.String("kind", string(route.Kind)), slog.Int64("chat_id", route.ChatID))

	var outcome string
	err = p.guard(errors.StageHandler, update.ID, func() error {
		var dispatchErr error
		outcome, dispatchErr = p.dispatch(ctx, log, route)
		return dispatchErr
	})
	if err != nil {
		return route.Kind, outcomeFailed, err
	}

	return route.Kind, outcome, nil
}

func (p *Pipeline) applyMiddlewares(ctx context.Context, update telebot.Update) (telebot.Update, error) {
	p.mu.RLock()
	middlewares := append([]handlers.Middleware(nil), p.middlewares...)
	p.mu.RUnlock()

	id := update.ID
	for i, mw := range middlewares {
		err := p.guard(errors.StageMiddleware, id, func() error {
			next, mwErr := mw(ctx, update)
			if mwErr != nil {
				return fmt.Errorf("middleware #%d: %w", i, mwErr)
			}
			update = next
			return nil
		})
		if err != nil {
			return update, err
		}
	}

	return update, nil
}

func (p *Pipeline) applyFilters(ctx context.Context, update telebot.Update) (bool, error) {
	p.mu.RLock()
	filters := append([]handlers.Filter(nil), p.filters...)
	p.mu.RUnlock()

	for _, filter := range filters {
		accepted := false
		err := p.guard(errors.StageFilter, update.ID, func() error {
			accepted = filter(ctx, update)
			return nil
		})
		if err != nil {
			return false, err
		}
		if accepted {
			return true, nil
		}
	}

	return false, nil
}

func (p *Pipeline) dispatch(ctx context.Context, log *slog.Logger, route Route) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHandler(string(route.Kind), time.Since(start))
	}()

	switch route.Kind {
	case RouteCommand:
		handler, ok := p.registry.LookupCommand(route.Command)
		if !ok {
			log.Debug("unknown command", slog.String("command", route.Command))
			if p.sender == nil {
				return outcomeUnmatched, nil
			}
			if _, err := p.sender.SendMessage(ctx, route.ChatID, p.unknownCommandText, nil); err != nil {
				return outcomeFallback, fmt.Errorf("reply to unknown command %s: %w", route.Command, err)
			}
			return outcomeFallback, nil
		}
		return outcomeHandled, handler(ctx, route.ChatID, route.Args)

	case RouteEvent:
		log.Debug("processing event", slog.String("text", route.Text))
		for _, ev := range p.registry.EventRoutes() {
			if ev.Predicate(route.Text) {
				return outcomeHandled, ev.Handler(ctx, route.ChatID)
			}
		}
		return outcomeUnmatched, nil

	case RouteButton:
		handler, ok := p.registry.LookupButton(route.Data)
		if !ok {
			log.Debug("no button handler", slog.String("data", route.Data))
			return outcomeUnmatched, nil
		}
		return outcomeHandled, handler(ctx, route.ChatID)

	default:
		return outcomeUnmatched, nil
	}
}

// guard runs fn, converting a returned error or a panic into a PipelineError tagged with stage.
func (p *Pipeline) guard(stage errors.Stage, updateID int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic recovered in pipeline",
				slog.String("stage", string(stage)),
				slog.Int("update_id", updateID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = errors.NewPanicError(stage, updateID, r)
		}
	}()

	if fnErr := fn(); fnErr != nil {
		return errors.NewPipelineError(stage, updateID, fnErr)
	}
	return nil
}
