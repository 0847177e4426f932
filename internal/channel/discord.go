package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"relaybot/internal/commands"
	"relaybot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// MessageHandler consumes inbound chat messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage)
}

// CommandHandler answers administrative commands.
type CommandHandler interface {
	Handle(ctx context.Context, req domain.CommandRequest) domain.CommandResponse
}

// Handlers are the consumers Discord dispatches events to.
type Handlers struct {
	Messages MessageHandler
	Commands CommandHandler
}

// DiscordConfig configures the Discord gateway.
type DiscordConfig struct {
	Token   string
	GuildID string // empty registers commands globally
	Logger  *slog.Logger
}

// Discord connects to the Discord gateway, dispatches events to Handlers and
// implements domain.Gateway for the relay.
type Discord struct {
	guildID string
	session *discordgo.Session
	logger  *slog.Logger
}

// NewDiscord creates the session without connecting.
func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Discord{
		guildID: cfg.GuildID,
		session: session,
		logger:  cfg.Logger,
	}, nil
}

func (d *Discord) Name() string { return "discord" }

// Start connects, registers commands once ready and blocks until ctx is done.
// Each gateway event runs on its own goroutine.
func (d *Discord) Start(ctx context.Context, h Handlers) error {
	s := d.session

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("discord bot ready", "user", r.User.Username, "guilds", len(r.Guilds))
		d.registerCommands(r.User.ID)
	})

	s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		msg := inboundMessage(m.Message, selfID(s), d.channelName(m.ChannelID))
		h.Messages.HandleMessage(ctx, msg)
	})

	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		d.handleCommand(ctx, i, h.Commands)
	})

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord bot connected")

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return s.Close()
}

func (d *Discord) handleCommand(ctx context.Context, i *discordgo.InteractionCreate, cmds CommandHandler) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command handler panic", "panic", r)
		}
	}()

	var guild *discordgo.Guild
	if i.GuildID != "" {
		var err error
		guild, err = d.guild(i.GuildID)
		if err != nil {
			d.logger.Warn("cannot load guild for command", "guild", i.GuildID, "err", err)
			d.respond(i, domain.CommandResponse{Content: "⚠️ Could not load server information, try again.", Ephemeral: true})
			return
		}
	}

	resp := cmds.Handle(ctx, commandRequest(i, guild))
	d.respond(i, resp)
}

func (d *Discord) respond(i *discordgo.InteractionCreate, resp domain.CommandResponse) {
	data := &discordgo.InteractionResponseData{Content: resp.Content}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := d.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		d.logger.Error("interaction respond failed", "err", err)
	}
}

func (d *Discord) registerCommands(appID string) {
	cmds := applicationCommands(commands.Definitions())
	if _, err := d.session.ApplicationCommandBulkOverwrite(appID, d.guildID, cmds); err != nil {
		d.logger.Error("failed to register slash commands", "guild", d.guildID, "err", err)
		return
	}
	d.logger.Info("slash commands registered", "count", len(cmds), "guild", d.guildID)
}

func (d *Discord) guild(id string) (*discordgo.Guild, error) {
	if g, err := d.session.State.Guild(id); err == nil {
		return g, nil
	}
	return d.session.Guild(id)
}

// channelName looks the channel up in the state cache only; an empty result
// is rendered as "unknown".
func (d *Discord) channelName(id string) string {
	if ch, err := d.session.State.Channel(id); err == nil {
		return ch.Name
	}
	return ""
}

// --- domain.Gateway ---

func (d *Discord) ResolveTextChannel(ctx context.Context, channelID string) (domain.ChannelRef, error) {
	if channelID == "" {
		return domain.ChannelRef{}, domain.ErrChannelNotFound
	}
	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		ch, err = d.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return domain.ChannelRef{}, fmt.Errorf("%w: %s: %v", domain.ErrChannelNotFound, channelID, err)
		}
	}
	if !isTextChannel(ch.Type) {
		return domain.ChannelRef{}, fmt.Errorf("%w: %s", domain.ErrNotTextChannel, channelID)
	}
	return domain.ChannelRef{ID: ch.ID, Name: ch.Name}, nil
}

func (d *Discord) SendRelay(ctx context.Context, channelID string, items []domain.RelayItem) error {
	msgs, closeFiles, err := relayMessages(items)
	if err != nil {
		return err
	}
	defer closeFiles()

	// Follow-ups carry only URL lines, so they are still sent when the first
	// message fails.
	var errs []error
	for i, msg := range msgs {
		if _, err := d.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("discord send %d/%d: %w", i+1, len(msgs), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Discord) SendAudit(ctx context.Context, channelID string, rec domain.AuditRecord) error {
	if _, err := d.session.ChannelMessageSendEmbed(channelID, auditEmbed(rec), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord audit send: %w", err)
	}
	return nil
}

func selfID(s *discordgo.Session) string {
	if s.State != nil && s.State.User != nil {
		return s.State.User.ID
	}
	return ""
}
