package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"relaybot/internal/config"
	"relaybot/internal/watchlist"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the relaybot setup",
		Long: `Verifies that relaybot's settings, token, watch list, temp directory and
history database are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandPath(resolveSettingsPath())
			fmt.Printf("relaybot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, warned, failed := 0, 0, 0

			// 1. Settings file
			if _, err := os.Stat(path); err != nil {
				printWarn("Settings file", fmt.Sprintf("not found at %s, using defaults", path))
				warned++
			} else {
				printPass("Settings file", path)
				passed++
			}

			// 2. Settings load and validate
			s, err := loadSettings()
			if err != nil {
				printFail("Settings", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d warnings, %d failed\n", passed, warned, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Settings", "valid")
			passed++

			// 3. Token
			if s.Discord.Token == "" {
				printFail("Bot token", "not set (BOT_TOKEN or discord.token)")
				failed++
			} else {
				printPass("Bot token", config.Sanitize(s).Discord.Token)
				passed++
			}

			// 4. Watch list
			cfg, detail, ok := checkWatchlist(s.Watchlist.Path)
			if ok {
				printPass("Watch list", detail)
				passed++
			} else {
				printWarn("Watch list", detail)
				warned++
			}
			if cfg.TargetChannelID == "" {
				printWarn("Target channel", "not set, nothing will be relayed (relaybot watchlist set-target)")
				warned++
			} else {
				printPass("Target channel", cfg.TargetChannelID)
				passed++
			}

			// 5. Temp dir writable
			tmp := s.Relay.TempDir
			if tmp == "" {
				tmp = os.TempDir()
			}
			if err := checkWritableDir(tmp); err != nil {
				printFail("Temp dir", err.Error())
				failed++
			} else {
				printPass("Temp dir", tmp)
				passed++
			}

			// 6. History database
			if s.History.Enabled {
				if err := checkDatabase(s.History.DBPath); err != nil {
					printFail("History database", err.Error())
					failed++
				} else {
					printPass("History database", s.History.DBPath)
					passed++
				}
			}

			// 7. Metrics listener
			if s.Metrics.Enabled {
				if err := checkListen(s.Metrics.Listen); err != nil {
					printWarn("Metrics listen", fmt.Sprintf("%s may be in use: %v", s.Metrics.Listen, err))
					warned++
				} else {
					printPass("Metrics listen", s.Metrics.Listen+" available")
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running relaybot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nrelaybot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! relaybot is ready to run.\n")
			}
			return nil
		},
	}
}

// checkWatchlist reads the watch list file. A missing file is reported but
// still usable: the bot starts with an empty list.
func checkWatchlist(path string) (watchlist.WatchConfig, string, bool) {
	store := watchlist.NewStore(path, logger)
	cfg := store.Current()
	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Sprintf("not found at %s, starting empty", path), false
	}
	return cfg, fmt.Sprintf("%s (%d users)", path, len(cfg.WatchedUsers)), true
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cannot create: %w", err)
	}
	f, err := os.CreateTemp(dir, ".relaybot-doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	f.Close()
	return os.Remove(f.Name())
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test"); err != nil {
		return fmt.Errorf("cannot drop _doctor_test table: %w", err)
	}
	return nil
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
