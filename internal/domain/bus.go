package domain

import "time"

// Event is an internal lifecycle notification (relay finished, command ran).
type Event struct {
	Type      string
	Source    string
	Payload   map[string]any
	Timestamp time.Time
}

// EventEmitter publishes internal events.
type EventEmitter interface {
	Emit(event Event)
}

const (
	EventRelayCompleted  = "relay.completed"
	EventRelayAbandoned  = "relay.abandoned"
	EventCommandExecuted = "command.executed"
)
