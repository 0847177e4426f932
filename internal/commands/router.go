package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/watchlist"
)

const (
	msgRejected     = "🚫 Only the server owner or highest role may use this command."
	msgNoneFollowed = "👁️ No users are being followed."
	msgSaveFailed   = "⚠️ Could not save the watch list. Check the bot logs."
)

// Authorizer decides whether a requester may mutate the watch list.
type Authorizer interface {
	IsAuthorized(req domain.Requester, guild domain.GuildContext) bool
}

// WatchStore is the part of watchlist.Store the router needs.
type WatchStore interface {
	Reload() watchlist.WatchConfig
	Commit(cfg watchlist.WatchConfig) error
}

// RouterConfig configures a Router.
type RouterConfig struct {
	Store  WatchStore
	Guard  Authorizer
	Events domain.EventEmitter // optional
	Logger *slog.Logger
}

// Router runs follow, unfollow and listfollows against the watch list.
type Router struct {
	store  WatchStore
	guard  Authorizer
	events domain.EventEmitter
	logger *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		store:  cfg.Store,
		guard:  cfg.Guard,
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

// Handle runs one command. Every response is ephemeral.
func (r *Router) Handle(ctx context.Context, req domain.CommandRequest) domain.CommandResponse {
	if !r.guard.IsAuthorized(req.Requester, req.Guild) {
		r.emit(req, "", "rejected")
		return reply(msgRejected)
	}

	// Always act on what is on disk, not on what a previous command left in memory.
	cfg := r.store.Reload()

	switch req.Name {
	case CmdFollow:
		return r.follow(req, cfg)
	case CmdUnfollow:
		return r.unfollow(req, cfg)
	case CmdListFollows:
		r.emit(req, "", "ok")
		return reply(listText(cfg))
	default:
		r.emit(req, "", "error")
		return reply(fmt.Sprintf("Unknown command: %s", req.Name))
	}
}

func (r *Router) follow(req domain.CommandRequest, cfg watchlist.WatchConfig) domain.CommandResponse {
	userID, ok := userOption(req)
	if !ok {
		r.emit(req, "", "error")
		return reply("Usage: /follow userid:<user id>")
	}

	next, added := cfg.WithUser(userID)
	if !added {
		r.emit(req, userID, "ok")
		return reply(fmt.Sprintf("👀 Already following %s.", mention(userID)))
	}
	if err := r.store.Commit(next); err != nil {
		r.logger.Error("follow: save watch list failed", "user", userID, "err", err)
		r.emit(req, userID, "error")
		return reply(msgSaveFailed)
	}

	r.logger.Info("user followed", "user", userID, "by", req.Requester.UserID, "guild", req.Guild.ID)
	r.emit(req, userID, "ok")
	return reply(fmt.Sprintf("✅ Now following %s.", mention(userID)))
}

func (r *Router) unfollow(req domain.CommandRequest, cfg watchlist.WatchConfig) domain.CommandResponse {
	userID, ok := userOption(req)
	if !ok {
		r.emit(req, "", "error")
		return reply("Usage: /unfollow userid:<user id>")
	}

	next, _ := cfg.WithoutUser(userID)
	if err := r.store.Commit(next); err != nil {
		r.logger.Error("unfollow: save watch list failed", "user", userID, "err", err)
		r.emit(req, userID, "error")
		return reply(msgSaveFailed)
	}

	r.logger.Info("user unfollowed", "user", userID, "by", req.Requester.UserID, "guild", req.Guild.ID)
	r.emit(req, userID, "ok")
	return reply(fmt.Sprintf("❎ Stopped following %s.", mention(userID)))
}

func (r *Router) emit(req domain.CommandRequest, target, result string) {
	if r.events == nil {
		return
	}
	r.events.Emit(domain.Event{
		Type:   domain.EventCommandExecuted,
		Source: "commands",
		Payload: map[string]any{
			"name":   req.Name,
			"user":   req.Requester.UserID,
			"guild":  req.Guild.ID,
			"target": target,
			"result": result,
		},
		Timestamp: time.Now(),
	})
}

func listText(cfg watchlist.WatchConfig) string {
	if len(cfg.WatchedUsers) == 0 {
		return msgNoneFollowed
	}
	var sb strings.Builder
	sb.WriteString("👁️ Currently following:")
	for _, id := range cfg.WatchedUsers {
		sb.WriteString("\n")
		sb.WriteString(mention(id))
	}
	return sb.String()
}

func userOption(req domain.CommandRequest) (string, bool) {
	id := strings.TrimSpace(req.Options[OptUserID])
	return id, id != ""
}

func mention(userID string) string { return "<@" + userID + ">" }

func reply(content string) domain.CommandResponse {
	return domain.CommandResponse{Content: content, Ephemeral: true}
}
