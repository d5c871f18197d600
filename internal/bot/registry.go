package bot

import (
	"sync"

	"github.com/Proton-105/pollbot/internal/bot/handlers"
)

// EventRoute pairs a text predicate with its handler.
type EventRoute struct {
	Key       string
	Predicate handlers.Predicate
	Handler   handlers.EventHandler
}

// Registry maps commands, text predicates and button callback ids to handlers.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]handlers.CommandHandler
	events   []EventRoute
	buttons  map[string]handlers.ButtonHandler
}

// NewRegistry builds a Registry with empty tables.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]handlers.CommandHandler),
		events:   make([]EventRoute, 0),
		buttons:  make(map[string]handlers.ButtonHandler),
	}
}

// RegisterCommand binds name (including its prefix, e.g. "/start") to h. A later registration replaces an earlier one.
func (r *Registry) RegisterCommand(name string, h handlers.CommandHandler) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

// RegisterEvent appends a predicate route. Routes are matched in registration order.
func (r *Registry) RegisterEvent(p handlers.Predicate, h handlers.EventHandler) {
	r.RegisterNamedEvent("", p, h)
}

// RegisterNamedEvent registers a route under key. Registering an existing key replaces that
// route's predicate and handler but keeps its original position; an empty key always appends.
func (r *Registry) RegisterNamedEvent(key string, p handlers.Predicate, h handlers.EventHandler) {
	if p == nil || h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if key != "" {
		for i := range r.events {
			if r.events[i].Key == key {
				r.events[i].Predicate = p
				r.events[i].Handler = h
				return
			}
		}
	}

	r.events = append(r.events, EventRoute{Key: key, Predicate: p, Handler: h})
}

// RegisterButton binds callback id to h unless the id is already bound; the first registration wins.
// It reports whether h was stored.
func (r *Registry) RegisterButton(id string, h handlers.ButtonHandler) bool {
	if h == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.buttons[id]; exists {
		return false
	}
	r.buttons[id] = h
	return true
}

// LookupCommand returns the handler bound to the full command token.
func (r *Registry) LookupCommand(name string) (handlers.CommandHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.commands[name]
	return h, ok
}

// EventRoutes returns a snapshot of the predicate routes in matching order.
func (r *Registry) EventRoutes() []EventRoute {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]EventRoute, len(r.events))
	copy(routes, r.events)
	return routes
}

// LookupButton returns the handler bound to callback id.
func (r *Registry) LookupButton(id string) (handlers.ButtonHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.buttons[id]
	return h, ok
}
