package domain

import (
	"context"
	"errors"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotTextChannel  = errors.New("channel is not text based")
)

// ChannelRef identifies a resolved, text-capable destination.
type ChannelRef struct {
	ID   string
	Name string
}

// Gateway is the outbound side of the chat platform used by the relay.
type Gateway interface {
	// ResolveTextChannel returns ErrChannelNotFound or ErrNotTextChannel when
	// the id cannot be used as a destination.
	ResolveTextChannel(ctx context.Context, channelID string) (ChannelRef, error)
	SendRelay(ctx context.Context, channelID string, items []RelayItem) error
	SendAudit(ctx context.Context, channelID string, rec AuditRecord) error
}
