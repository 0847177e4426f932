// Package bus is an in-process publish/subscribe hub for relay and command
// lifecycle events. Metrics and the history store subscribe to it.
package bus

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"relaybot/internal/domain"
)

// Handler receives events.
type Handler = func(domain.Event)

type namedHandler struct {
	id string
	fn Handler
}

// EventBus dispatches events to handlers registered by type, or to "*" for
// every type. A bounded history is kept for inspection.
type EventBus struct {
	mu         sync.RWMutex
	handlers   map[string][]namedHandler
	nextID     int
	history    []domain.Event
	maxHistory int
	logger     *slog.Logger
}

// NewEventBus creates an EventBus that remembers the last maxHistory events.
func NewEventBus(maxHistory int, logger *slog.Logger) *EventBus {
	if maxHistory <= 0 {
		maxHistory = 256
	}
	return &EventBus{
		handlers:   make(map[string][]namedHandler),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// On registers fn for eventType and returns an id naming it in panic logs.
func (eb *EventBus) On(eventType string, fn Handler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eventType + "-" + strconv.Itoa(eb.nextID)
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{id: id, fn: fn})
	return id
}

// Emit delivers event synchronously to matching handlers. A panicking handler
// is logged and does not stop delivery to the others.
func (eb *EventBus) Emit(event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.Lock()
	if len(eb.history) >= eb.maxHistory {
		eb.history = eb.history[1:]
	}
	eb.history = append(eb.history, event)
	targets := make([]namedHandler, 0, len(eb.handlers[event.Type])+len(eb.handlers["*"]))
	targets = append(targets, eb.handlers[event.Type]...)
	targets = append(targets, eb.handlers["*"]...)
	eb.mu.Unlock()

	for _, h := range targets {
		eb.dispatch(h, event)
	}
}

func (eb *EventBus) dispatch(h namedHandler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "event", event.Type, "handler", h.id, "panic", r)
		}
	}()
	h.fn(event)
}

// Replay returns remembered events of eventType ("*" for all) at or after since.
func (eb *EventBus) Replay(eventType string, since time.Time) []domain.Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var out []domain.Event
	for _, e := range eb.history {
		if e.Timestamp.Before(since) {
			continue
		}
		if eventType == "*" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
