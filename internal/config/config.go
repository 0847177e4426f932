package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the process configuration for relaybot. The watch list itself
// lives in its own file (Watchlist.Path).
type Settings struct {
	Discord   DiscordSettings   `json:"discord" yaml:"discord"`
	Watchlist WatchlistSettings `json:"watchlist" yaml:"watchlist"`
	Relay     RelaySettings     `json:"relay" yaml:"relay"`
	Log       LogSettings       `json:"log" yaml:"log"`
	History   HistorySettings   `json:"history" yaml:"history"`
	Metrics   MetricsSettings   `json:"metrics" yaml:"metrics"`
}

type DiscordSettings struct {
	Token   string `json:"token" yaml:"token"`
	GuildID string `json:"guildId,omitempty" yaml:"guildId,omitempty"` // register commands in one guild instead of globally
}

type WatchlistSettings struct {
	Path string `json:"path" yaml:"path"`
}

type RelaySettings struct {
	TempDir            string `json:"tempDir,omitempty" yaml:"tempDir,omitempty"` // empty = OS temp dir
	HTTPTimeoutSeconds int    `json:"httpTimeoutSeconds" yaml:"httpTimeoutSeconds"`
}

type LogSettings struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // text | json
}

type HistorySettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"dbPath" yaml:"dbPath"`
}

type MetricsSettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
}

// DefaultPath is the settings file used when --settings is not given.
const DefaultPath = "relaybot.yaml"

// Load reads and validates the settings file at path. YAML is assumed unless
// the extension is .json. Environment overrides are applied last.
func Load(path string) (*Settings, error) {
	path = ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read settings file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	s := Defaults()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, s)
	} else {
		err = yaml.Unmarshal(data, s)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse settings file %s: %w", path, err)
	}

	return finish(s)
}

// LoadOrDefaults is Load, except that a missing file yields Defaults().
func LoadOrDefaults(path string) (*Settings, error) {
	s, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(Defaults())
	}
	return s, err
}

func finish(s *Settings) (*Settings, error) {
	ApplyEnv(s)
	s.Watchlist.Path = ExpandPath(s.Watchlist.Path)
	s.Relay.TempDir = ExpandPath(s.Relay.TempDir)
	s.History.DBPath = ExpandPath(s.History.DBPath)
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("settings validation: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides settings from BOT_TOKEN, LOG_LEVEL and LOG_FORMAT.
func ApplyEnv(s *Settings) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		s.Discord.Token = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		s.Log.Format = strings.ToLower(v)
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value and
// ${VAR:-default} with default when VAR is unset or empty. Unknown variables
// without a default are left as written.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		val, ok := os.LookupEnv(groups[1])
		if ok && val != "" {
			return val
		}
		if strings.Contains(match, ":-") {
			return groups[2]
		}
		return match
	})
}

// Save writes s as YAML, or JSON when path ends in .json.
func Save(path string, s *Settings) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create settings directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("cannot marshal settings: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks value ranges. A missing token is not an error here; only
// the run command needs one.
func Validate(s *Settings) error {
	var errs []string

	if s.Watchlist.Path == "" {
		errs = append(errs, "watchlist.path must not be empty")
	}
	if s.Relay.HTTPTimeoutSeconds < 1 || s.Relay.HTTPTimeoutSeconds > 3600 {
		errs = append(errs, "relay.httpTimeoutSeconds must be between 1 and 3600")
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of: debug, info, warn, error")
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be one of: text, json")
	}
	if s.History.Enabled && s.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}
	if s.Metrics.Enabled && s.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("settings validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Sanitize returns a copy of s with the token masked.
func Sanitize(s *Settings) *Settings {
	out := *s
	if out.Discord.Token != "" {
		out.Discord.Token = maskString(out.Discord.Token)
	}
	return &out
}

// maskString shows the first and last 4 chars.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
