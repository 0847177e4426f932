package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Store loads and saves the watch list file and holds the snapshot the relay
// reads. Loads and saves are issued from one command path at a time; readers
// of Current never block.
type Store struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[WatchConfig]
}

// NewStore creates a store backed by path. The initial snapshot is loaded from
// disk.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{path: path, logger: logger}
	s.Reload()
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the backing file. A missing or malformed file yields Default().
func (s *Store) Load() WatchConfig {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cannot read watch list, using defaults", "path", s.path, "err", err)
		}
		return Default()
	}

	var cfg WatchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Warn("cannot parse watch list, using defaults", "path", s.path, "err", err)
		return Default()
	}
	return cfg.normalize()
}

// Save replaces the backing file with cfg. The document is written to a
// sibling temp file and renamed into place.
func (s *Store) Save(cfg WatchConfig) error {
	cfg = cfg.normalize()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal watch list: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch list directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp watch list: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write watch list: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync watch list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close watch list: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod watch list: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace watch list: %w", err)
	}
	return nil
}

// Reload loads the backing file and publishes it as the current snapshot.
func (s *Store) Reload() WatchConfig {
	cfg := s.Load()
	s.current.Store(&cfg)
	return cfg
}

// Commit saves cfg and, on success, publishes it as the current snapshot.
func (s *Store) Commit(cfg WatchConfig) error {
	cfg = cfg.normalize()
	if err := s.Save(cfg); err != nil {
		return err
	}
	s.current.Store(&cfg)
	return nil
}

// Current returns the in-memory snapshot without touching the file.
func (s *Store) Current() WatchConfig {
	if cfg := s.current.Load(); cfg != nil {
		return *cfg
	}
	return Default()
}
