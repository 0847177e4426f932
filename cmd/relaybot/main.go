package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"relaybot/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version      = "0.1.0"
	logger       *slog.Logger
	settingsPath string // overridable via --settings flag
)

func main() {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	logger = newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	root := &cobra.Command{
		Use:   "relaybot",
		Short: "relaybot: re-post attachments from watched Discord users",
		Long: "relaybot watches messages from a list of Discord users and re-posts their\n" +
			"attachments into a target channel, with an optional audit log channel.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "path to settings file (default: ./"+config.DefaultPath+")")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(watchlistCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(serviceCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger. Unknown levels fall back to info,
// unknown formats to text.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func resolveSettingsPath() string {
	if settingsPath != "" {
		return settingsPath
	}
	return config.DefaultPath
}

// loadSettings loads the settings file (defaults when it is missing) and
// rebuilds the logger from the resolved log settings.
func loadSettings() (*config.Settings, error) {
	path := resolveSettingsPath()
	s, err := config.LoadOrDefaults(path)
	if err != nil {
		return nil, err
	}
	logger = newLogger(s.Log.Level, s.Log.Format)
	return s, nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandPath(resolveSettingsPath())
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			s := config.Defaults()
			s.Discord.Token = "${BOT_TOKEN:-}"
			if err := config.Save(path, s); err != nil {
				return err
			}
			logger.Info("initialized", "settings", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("relaybot " + version)
		},
	}
}
