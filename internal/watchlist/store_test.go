package watchlist

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "config.json"), testLogger())
}

func TestLoad_MissingFile(t *testing.T) {
	s := newTestStore(t)
	cfg := s.Load()
	if len(cfg.WatchedUsers) != 0 || cfg.TargetChannelID != "" || cfg.LogChannelID != "" {
		t.Fatalf("expected default config, got %+v", cfg)
	}
	if cfg.WatchedUsers == nil {
		t.Error("default watched users should be an empty slice, not nil")
	}
}

func TestLoad_MalformedContent(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"garbage":       "not json at all",
		"truncated":     `{"watchedUsers": ["1", "2"`,
		"wrong type":    `{"watchedUsers": "123"}`,
		"array root":    `["123"]`,
		"numeric ids":   `{"watchedUsers": [1, 2]}`,
		"channel types": `{"watchedUsers": [], "targetChannelId": 42}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg := s.Load()
			if !reflect.DeepEqual(cfg, Default()) {
				t.Errorf("expected default config, got %+v", cfg)
			}
		})
	}
}

func TestLoad_DropsDuplicates(t *testing.T) {
	s := newTestStore(t)
	content := `{"watchedUsers": ["1", "2", "1", ""], "targetChannelId": "T", "logChannelId": "L"}`
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := s.Load()
	if !reflect.DeepEqual(cfg.WatchedUsers, []string{"1", "2"}) {
		t.Errorf("expected [1 2], got %v", cfg.WatchedUsers)
	}
	if cfg.TargetChannelID != "T" || cfg.LogChannelID != "L" {
		t.Errorf("channel ids not loaded: %+v", cfg)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	original := WatchConfig{
		WatchedUsers:    []string{"U1", "U2"},
		TargetChannelID: "T",
		LogChannelID:    "L",
	}
	if err := s.Save(original); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded := s.Load()
	if !reflect.DeepEqual(loaded, original) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", loaded, original)
	}

	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(s.Load()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("save(load()) changed the document:\n%s\n---\n%s", before, after)
	}
}

func TestSave_UsesDocumentFieldNames(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(WatchConfig{WatchedUsers: []string{"U1"}, TargetChannelID: "T"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"watchedUsers", "targetChannelId", "logChannelId"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(WatchConfig{WatchedUsers: []string{"U1"}}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the watch list file, got %v", names)
	}
}

func TestCurrent_ReflectsReloadAndCommit(t *testing.T) {
	s := newTestStore(t)
	if got := s.Current(); len(got.WatchedUsers) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}

	// Out-of-band edits are not visible until the next reload.
	if err := os.WriteFile(s.Path(), []byte(`{"watchedUsers":["U1"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if s.Current().Contains("U1") {
		t.Error("snapshot should not change without a reload")
	}
	s.Reload()
	if !s.Current().Contains("U1") {
		t.Error("snapshot should contain U1 after reload")
	}

	next, _ := s.Current().WithUser("U2")
	if err := s.Commit(next); err != nil {
		t.Fatal(err)
	}
	if !s.Current().Contains("U2") {
		t.Error("snapshot should contain U2 after commit")
	}
	if !s.Load().Contains("U2") {
		t.Error("file should contain U2 after commit")
	}
}

func TestCommit_FailureKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Parent of the watch list is a regular file, so the save must fail.
	s := NewStore(filepath.Join(blocker, "config.json"), testLogger())

	next, _ := s.Current().WithUser("U1")
	if err := s.Commit(next); err == nil {
		t.Fatal("expected commit error")
	}
	if s.Current().Contains("U1") {
		t.Error("failed commit must not publish a new snapshot")
	}
}
