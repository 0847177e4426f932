package channel

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"relaybot/internal/commands"
	"relaybot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

func inboundMessage(m *discordgo.Message, selfID, channelName string) domain.InboundMessage {
	msg := domain.InboundMessage{
		ID:          m.ID,
		AuthorID:    m.Author.ID,
		AuthorIsBot: m.Author.Bot || (selfID != "" && m.Author.ID == selfID),
		ChannelID:   m.ChannelID,
		ChannelName: channelName,
		GuildID:     m.GuildID,
		CreatedAt:   m.Timestamp,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, domain.Attachment{URL: a.URL, Name: a.Filename})
	}
	return msg
}

// commandRequest flattens an interaction into a CommandRequest. guild is nil
// for commands issued outside a guild, which the guard rejects.
func commandRequest(i *discordgo.InteractionCreate, guild *discordgo.Guild) domain.CommandRequest {
	data := i.ApplicationCommandData()
	req := domain.CommandRequest{
		Name:    data.Name,
		Options: make(map[string]string, len(data.Options)),
	}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			req.Options[opt.Name] = opt.StringValue()
		}
	}

	switch {
	case i.Member != nil && i.Member.User != nil:
		req.Requester = domain.Requester{UserID: i.Member.User.ID, RoleIDs: i.Member.Roles}
	case i.User != nil:
		req.Requester = domain.Requester{UserID: i.User.ID}
	}

	if guild != nil {
		req.Guild = domain.GuildContext{ID: guild.ID, OwnerID: guild.OwnerID}
		for _, r := range guild.Roles {
			if r != nil {
				req.Guild.Roles = append(req.Guild.Roles, domain.Role{ID: r.ID, Position: r.Position})
			}
		}
	}
	return req
}

func applicationCommands(defs []commands.Definition) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, def := range defs {
		cmd := &discordgo.ApplicationCommand{
			Name:        def.Name,
			Description: def.Description,
		}
		for _, opt := range def.Options {
			cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        opt.Name,
				Description: opt.Description,
				Required:    opt.Required,
			})
		}
		out = append(out, cmd)
	}
	return out
}

// relayMessages renders items as the messages of one relay: the first carries
// every staged file plus as many whole URL lines as fit, the rest carry the
// remaining fallback URLs. The returned func closes the opened files and must
// be called after sending.
func relayMessages(items []domain.RelayItem) ([]*discordgo.MessageSend, func(), error) {
	var (
		first discordgo.MessageSend
		urls  []string
		files []*os.File
	)
	closeFiles := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, it := range items {
		switch v := it.(type) {
		case domain.StagedFile:
			f, err := os.Open(v.Path)
			if err != nil {
				closeFiles()
				return nil, func() {}, fmt.Errorf("open staged file %s: %w", v.Name, err)
			}
			files = append(files, f)
			first.Files = append(first.Files, &discordgo.File{
				Name:        v.Name,
				ContentType: mime.TypeByExtension(filepath.Ext(v.Name)),
				Reader:      f,
			})
		case domain.FallbackURL:
			urls = append(urls, v.URL)
		}
	}

	chunks := packLines(urls, discordMaxMsgLen)
	if len(chunks) > 0 {
		first.Content = chunks[0]
		chunks = chunks[1:]
	}
	msgs := []*discordgo.MessageSend{&first}
	for _, c := range chunks {
		msgs = append(msgs, &discordgo.MessageSend{Content: c})
	}
	return msgs, closeFiles, nil
}

// packLines joins lines with newlines into chunks of at most maxLen bytes
// without breaking a line. A line longer than maxLen is split on its own.
func packLines(lines []string, maxLen int) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, line := range lines {
		if len(line) > maxLen {
			flush()
			chunks = append(chunks, splitMessage(line, maxLen)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > maxLen {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}

// splitMessage splits msg into chunks of at most maxLen bytes, preferring
// newlines and never cutting inside a UTF-8 sequence.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLen
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}

func auditEmbed(rec domain.AuditRecord) *discordgo.MessageEmbed {
	name := rec.ChannelName
	if name == "" {
		name = "unknown"
	}
	return &discordgo.MessageEmbed{
		Title:       rec.Title,
		Description: fmt.Sprintf("Message from watched user <@%s>", rec.AuthorID),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "From channel", Value: fmt.Sprintf("%s (%s)", name, rec.ChannelID), Inline: true},
			{Name: "Time", Value: fmt.Sprintf("<t:%d:F>", rec.CreatedAt.Unix()), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Message ID: " + rec.MessageID},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// isTextChannel reports whether messages can be sent to a channel of type t.
func isTextChannel(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeDM,
		discordgo.ChannelTypeGroupDM,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}
