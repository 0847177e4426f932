package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybot/internal/bus"
	"relaybot/internal/channel"
	"relaybot/internal/commands"
	"relaybot/internal/history"
	"relaybot/internal/metrics"
	"relaybot/internal/relay"
	"relaybot/internal/security"
	"relaybot/internal/watchlist"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start relaying",
		Long:  "Connects to Discord, registers the slash commands and relays attachments. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if s.Discord.Token == "" {
		logger.Error("no bot token configured", "hint", "set BOT_TOKEN or discord.token")
		return errors.New("bot token is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.NewEventBus(0, logger)

	if s.History.Enabled {
		store, err := history.NewSQLiteStore(s.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer store.Close()
		history.Attach(events, store, logger)
		logger.Info("relay history enabled", "db", s.History.DBPath)
	}

	if s.Metrics.Enabled {
		rec := metrics.NewRecorder()
		rec.Attach(events)
		go func() {
			if err := rec.Serve(ctx, s.Metrics.Listen, events, logger); err != nil {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	if s.Relay.TempDir != "" {
		if err := os.MkdirAll(s.Relay.TempDir, 0o700); err != nil {
			return fmt.Errorf("temp dir: %w", err)
		}
	}

	watch := watchlist.NewStore(s.Watchlist.Path, logger)
	cur := watch.Current()
	logger.Info("watch list loaded",
		"path", watch.Path(),
		"users", len(cur.WatchedUsers),
		"target", cur.TargetChannelID,
		"log", cur.LogChannelID)

	discord, err := channel.NewDiscord(channel.DiscordConfig{
		Token:   s.Discord.Token,
		GuildID: s.Discord.GuildID,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	router := commands.NewRouter(commands.RouterConfig{
		Store:  watch,
		Guard:  security.NewGuard(),
		Events: events,
		Logger: logger,
	})

	relayer := relay.New(relay.Config{
		Gateway:    discord,
		Watchlist:  watch,
		HTTPClient: relay.NewHTTPClient(time.Duration(s.Relay.HTTPTimeoutSeconds) * time.Second),
		TempDir:    s.Relay.TempDir,
		Events:     events,
		Logger:     logger,
	})

	logger.Info("relaybot starting", "version", version)
	if err := discord.Start(ctx, channel.Handlers{Messages: relayer, Commands: router}); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
