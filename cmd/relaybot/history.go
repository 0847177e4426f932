package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"relaybot/internal/history"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit    int
		commands bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent relay attempts",
		Long:  "Shows recent relay attempts (or administrative commands with --commands) from the history database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if _, err := os.Stat(s.History.DBPath); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no history database at %s (enable history.enabled and run the bot)", s.History.DBPath)
				}
				return err
			}

			store, err := history.NewSQLiteStore(s.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			if commands {
				recs, err := store.RecentCommands(ctx, limit)
				if err != nil {
					return fmt.Errorf("read history: %w", err)
				}
				fmt.Fprintln(w, "WHEN\tCOMMAND\tUSER\tTARGET\tRESULT")
				for _, r := range recs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						humanize.Time(r.CreatedAt), r.Name, r.UserID, orNone(r.Target), r.Result)
				}
				return nil
			}

			recs, err := store.RecentRelays(ctx, limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			fmt.Fprintln(w, "WHEN\tOUTCOME\tAUTHOR\tMESSAGE\tSTAGED\tFALLBACK\tERROR")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(r.CreatedAt), r.Outcome, r.AuthorID, r.MessageID,
					humanize.Comma(int64(r.Staged)), humanize.Comma(int64(r.Fallbacks)), orNone(r.SendError))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&commands, "commands", false, "show administrative commands instead of relays")
	return cmd
}
