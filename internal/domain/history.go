package domain

import (
	"context"
	"time"
)

// RelayRecord is the persisted summary of one relay attempt.
type RelayRecord struct {
	AttemptID string    `json:"attempt_id"`
	MessageID string    `json:"message_id"`
	AuthorID  string    `json:"author_id"`
	ChannelID string    `json:"channel_id"`
	TargetID  string    `json:"target_id"`
	Outcome   string    `json:"outcome"` // completed | abandoned
	Staged    int       `json:"staged"`
	Fallbacks int       `json:"fallbacks"`
	SendError string    `json:"send_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CommandRecord is the persisted summary of one administrative command.
type CommandRecord struct {
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	GuildID   string    `json:"guild_id"`
	Target    string    `json:"target,omitempty"`
	Result    string    `json:"result"` // ok | rejected | error
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists relay and command records.
type HistoryStore interface {
	AddRelay(ctx context.Context, rec RelayRecord) error
	RecentRelays(ctx context.Context, limit int) ([]RelayRecord, error)
	AddCommand(ctx context.Context, rec CommandRecord) error
	RecentCommands(ctx context.Context, limit int) ([]CommandRecord, error)
	Close() error
}
