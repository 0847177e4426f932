package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BOT_TOKEN", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
}

// --- Validate ---

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("expected defaults to be valid, got: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty watchlist path", func(s *Settings) { s.Watchlist.Path = "" }},
		{"timeout zero", func(s *Settings) { s.Relay.HTTPTimeoutSeconds = 0 }},
		{"timeout too high", func(s *Settings) { s.Relay.HTTPTimeoutSeconds = 4000 }},
		{"bad level", func(s *Settings) { s.Log.Level = "verbose" }},
		{"bad format", func(s *Settings) { s.Log.Format = "xml" }},
		{"history without path", func(s *Settings) { s.History.Enabled = true; s.History.DBPath = "" }},
		{"metrics without listen", func(s *Settings) { s.Metrics.Enabled = true; s.Metrics.Listen = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)
			if err := Validate(s); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_TokenNotRequired(t *testing.T) {
	s := Defaults()
	s.Discord.Token = ""
	if err := Validate(s); err != nil {
		t.Fatalf("missing token should not fail validation: %v", err)
	}
}

// --- Load / Save ---

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "relaybot.yaml")
	content := `
discord:
  token: abc
  guildId: "42"
watchlist:
  path: /data/watch.json
relay:
  httpTimeoutSeconds: 30
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Discord.Token != "abc" || s.Discord.GuildID != "42" {
		t.Errorf("discord settings not loaded: %+v", s.Discord)
	}
	if s.Watchlist.Path != "/data/watch.json" || s.Relay.HTTPTimeoutSeconds != 30 || s.Log.Level != "debug" {
		t.Errorf("unexpected settings %+v", s)
	}
	if s.Log.Format != "text" {
		t.Errorf("unset fields should keep defaults, got format %q", s.Log.Format)
	}
}

func TestLoad_JSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "relaybot.json")
	if err := os.WriteFile(path, []byte(`{"log":{"level":"warn","format":"json"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Log.Level != "warn" || s.Log.Format != "json" {
		t.Errorf("unexpected log settings %+v", s.Log)
	}
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "relaybot.yaml")
	if err := os.WriteFile(path, []byte("log: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}

	if err := os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadOrDefaults_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "from-env")
	s, err := LoadOrDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got %v", err)
	}
	if s.Watchlist.Path != "config.json" {
		t.Errorf("expected default watch list path, got %q", s.Watchlist.Path)
	}
	if s.Discord.Token != "from-env" {
		t.Errorf("env token not applied, got %q", s.Discord.Token)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("LOG_LEVEL", "ERROR")
	path := filepath.Join(t.TempDir(), "relaybot.yaml")
	if err := os.WriteFile(path, []byte("discord:\n  token: file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Discord.Token != "env-token" {
		t.Errorf("expected env token, got %q", s.Discord.Token)
	}
	if s.Log.Level != "error" {
		t.Errorf("expected lower-cased env level, got %q", s.Log.Level)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{"s.yaml", "s.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			original := Defaults()
			original.Discord.GuildID = "123"
			original.History.Enabled = true
			original.History.DBPath = "/tmp/h.db"

			if err := Save(path, original); err != nil {
				t.Fatalf("save: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.Discord.GuildID != "123" || !loaded.History.Enabled || loaded.History.DBPath != "/tmp/h.db" {
				t.Errorf("round trip mismatch: %+v", loaded)
			}
		})
	}
}

// --- Env expansion ---

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RELAY_TEST_SET", "value")
	t.Setenv("RELAY_TEST_EMPTY", "")

	tests := map[string]string{
		"${RELAY_TEST_SET}":              "value",
		"${RELAY_TEST_EMPTY:-fallback}":  "fallback",
		"${RELAY_TEST_UNSET:-fallback}":  "fallback",
		"${RELAY_TEST_UNSET}":            "${RELAY_TEST_UNSET}",
		"${RELAY_TEST_UNSET:-}":          "",
		"prefix-${RELAY_TEST_SET}-after": "prefix-value-after",
	}
	for in, want := range tests {
		if got := ExpandEnvVars(in); got != want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	s := Defaults()
	s.Discord.Token = "MTIzNDU2Nzg5.abcdef.ghijkl"
	out := Sanitize(s)
	if out.Discord.Token == s.Discord.Token || !strings.Contains(out.Discord.Token, "****") {
		t.Errorf("token not masked: %q", out.Discord.Token)
	}
	if s.Discord.Token != "MTIzNDU2Nzg5.abcdef.ghijkl" {
		t.Error("Sanitize mutated its input")
	}
}
