package main

import (
	"fmt"
	"strings"

	"relaybot/internal/watchlist"

	"github.com/spf13/cobra"
)

// watchlistCmd edits the watch list file from the shell. Shell access to the
// file is the authorization, so no guard runs here.
func watchlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "View and edit the watch list file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show watched users and channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openWatchlist()
			if err != nil {
				return err
			}
			cfg := store.Current()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:    %s\n", store.Path())
			fmt.Fprintf(out, "target:  %s\n", orNone(cfg.TargetChannelID))
			fmt.Fprintf(out, "log:     %s\n", orNone(cfg.LogChannelID))
			if len(cfg.WatchedUsers) == 0 {
				fmt.Fprintln(out, "users:   (none)")
				return nil
			}
			fmt.Fprintf(out, "users:   %s\n", strings.Join(cfg.WatchedUsers, ", "))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "follow [user-id]",
		Short: "Add a user to the watch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editWatchlist(func(cfg watchlist.WatchConfig) (watchlist.WatchConfig, string) {
				next, added := cfg.WithUser(args[0])
				if !added {
					return next, "already following " + args[0]
				}
				return next, "now following " + args[0]
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unfollow [user-id]",
		Short: "Remove a user from the watch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editWatchlist(func(cfg watchlist.WatchConfig) (watchlist.WatchConfig, string) {
				next, _ := cfg.WithoutUser(args[0])
				return next, "stopped following " + args[0]
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-target [channel-id]",
		Short: "Set the channel attachments are relayed to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editWatchlist(func(cfg watchlist.WatchConfig) (watchlist.WatchConfig, string) {
				return cfg.WithTarget(args[0]), "target channel set to " + args[0]
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-log [channel-id]",
		Short: "Set the audit log channel (empty string disables it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editWatchlist(func(cfg watchlist.WatchConfig) (watchlist.WatchConfig, string) {
				if args[0] == "" {
					return cfg.WithLog(""), "log channel disabled"
				}
				return cfg.WithLog(args[0]), "log channel set to " + args[0]
			})
		},
	})

	return cmd
}

func openWatchlist() (*watchlist.Store, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return watchlist.NewStore(s.Watchlist.Path, logger), nil
}

func editWatchlist(edit func(watchlist.WatchConfig) (watchlist.WatchConfig, string)) error {
	store, err := openWatchlist()
	if err != nil {
		return err
	}
	next, summary := edit(store.Current())
	if err := store.Commit(next); err != nil {
		return fmt.Errorf("save watch list: %w", err)
	}
	logger.Info(summary, "file", store.Path())
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
