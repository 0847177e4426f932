package domain

import "time"

// InboundMessage is a chat message as seen by the relay.
type InboundMessage struct {
	ID          string
	AuthorID    string
	AuthorIsBot bool
	ChannelID   string
	ChannelName string // empty when the gateway could not resolve it
	GuildID     string
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment describes a file attached to an inbound message.
type Attachment struct {
	URL  string
	Name string // declared file name, may be empty
}

// RelayItem is one entry of an outbound relay batch: either a StagedFile or a
// FallbackURL. Consumers switch on the concrete type.
type RelayItem interface {
	relayItem()
}

// StagedFile is a local temporary copy of an attachment. The relay attempt that
// created it owns the file until it is released.
type StagedFile struct {
	Path string
	Name string
	Size int64
}

// FallbackURL stands in for an attachment that could not be downloaded.
type FallbackURL struct {
	URL string
}

func (StagedFile) relayItem()  {}
func (FallbackURL) relayItem() {}

// AuditRecord is the metadata mirrored to the log channel for one relay attempt.
type AuditRecord struct {
	Title       string
	AuthorID    string
	ChannelID   string
	ChannelName string
	MessageID   string
	CreatedAt   time.Time
}

// CommandRequest is an administrative slash command invocation.
type CommandRequest struct {
	Name      string
	Options   map[string]string
	Requester Requester
	Guild     GuildContext
}

// CommandResponse is the reply to a CommandRequest.
type CommandResponse struct {
	Content   string
	Ephemeral bool
}
