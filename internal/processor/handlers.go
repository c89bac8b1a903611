package processor

import (
	"fmt"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/state"
)

// Handler advances the state snapshot by one event.
type Handler func(s *state.Snapshot, env events.Envelope) (*state.Snapshot, error)

// HandlerRegistry maps event types to their handlers.
type HandlerRegistry struct {
	handlers map[events.Type]Handler
}

// NewHandlerRegistry creates an empty handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[events.Type]Handler),
	}
}

// DefaultHandlers registers state.Apply for every known event type.
func DefaultHandlers() *HandlerRegistry {
	r := NewHandlerRegistry()
	for _, t := range events.AllTypes {
		r.Register(t, state.Apply)
	}
	return r
}

// Register adds (or replaces) the handler for an event type.
func (r *HandlerRegistry) Register(t events.Type, h Handler) {
	r.handlers[t] = h
}

// CanHandle reports whether a handler is registered for the event's type.
func (r *HandlerRegistry) CanHandle(t events.Type) bool {
	_, ok := r.handlers[t]
	return ok
}

// Handle dispatches an event to its handler.
// Returns an error if no handler is registered for the event type.
func (r *HandlerRegistry) Handle(s *state.Snapshot, env events.Envelope) (*state.Snapshot, error) {
	h, ok := r.handlers[env.EventType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for event type: %s", env.EventType)
	}
	return h(s, env)
}
