package history

import (
	"context"
	"log/slog"
	"time"

	"relaybot/internal/domain"
)

// Subscriber is the part of the event bus the recorder needs.
type Subscriber interface {
	On(eventType string, fn func(domain.Event)) string
}

// Attach writes relay and command events from sub into store. Write failures
// are logged and otherwise ignored.
func Attach(sub Subscriber, store domain.HistoryStore, logger *slog.Logger) {
	write := func(kind string, fn func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warn("history write failed", "kind", kind, "err", err)
		}
	}

	onRelay := func(e domain.Event) {
		rec := RelayRecordFromEvent(e)
		write("relay", func(ctx context.Context) error { return store.AddRelay(ctx, rec) })
	}
	sub.On(domain.EventRelayCompleted, onRelay)
	sub.On(domain.EventRelayAbandoned, onRelay)

	sub.On(domain.EventCommandExecuted, func(e domain.Event) {
		rec := CommandRecordFromEvent(e)
		write("command", func(ctx context.Context) error { return store.AddCommand(ctx, rec) })
	})
}

// RelayRecordFromEvent converts a relay.* event into a record.
func RelayRecordFromEvent(e domain.Event) domain.RelayRecord {
	outcome := "completed"
	if e.Type == domain.EventRelayAbandoned {
		outcome = "abandoned"
	}
	staged, _ := e.Payload["staged"].(int)
	fallbacks, _ := e.Payload["fallbacks"].(int)
	return domain.RelayRecord{
		AttemptID: str(e, "attempt"),
		MessageID: str(e, "message"),
		AuthorID:  str(e, "author"),
		ChannelID: str(e, "channel"),
		TargetID:  str(e, "target"),
		Outcome:   outcome,
		Staged:    staged,
		Fallbacks: fallbacks,
		SendError: str(e, "send_error"),
		CreatedAt: e.Timestamp,
	}
}

// CommandRecordFromEvent converts a command.executed event into a record.
func CommandRecordFromEvent(e domain.Event) domain.CommandRecord {
	return domain.CommandRecord{
		Name:      str(e, "name"),
		UserID:    str(e, "user"),
		GuildID:   str(e, "guild"),
		Target:    str(e, "target"),
		Result:    str(e, "result"),
		CreatedAt: e.Timestamp,
	}
}

func str(e domain.Event, key string) string {
	s, _ := e.Payload[key].(string)
	return s
}
