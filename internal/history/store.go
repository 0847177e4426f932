// Package history keeps a SQLite log of relay attempts and administrative
// commands for later inspection with `relaybot history`.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"relaybot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.HistoryStore.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS relays (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id  TEXT NOT NULL,
		message_id  TEXT NOT NULL,
		author_id   TEXT NOT NULL,
		channel_id  TEXT,
		target_id   TEXT,
		outcome     TEXT NOT NULL,
		staged      INTEGER DEFAULT 0,
		fallbacks   INTEGER DEFAULT 0,
		send_error  TEXT,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_relays_time ON relays(created_at);

	CREATE TABLE IF NOT EXISTS commands (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		user_id     TEXT,
		guild_id    TEXT,
		target      TEXT,
		result      TEXT NOT NULL,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_commands_time ON commands(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) AddRelay(ctx context.Context, rec domain.RelayRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relays (attempt_id, message_id, author_id, channel_id, target_id, outcome, staged, fallbacks, send_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AttemptID, rec.MessageID, rec.AuthorID, rec.ChannelID, rec.TargetID,
		rec.Outcome, rec.Staged, rec.Fallbacks, rec.SendError, rec.CreatedAt.UTC(),
	)
	return err
}

// RecentRelays returns up to limit records, newest first.
func (s *SQLiteStore) RecentRelays(ctx context.Context, limit int) ([]domain.RelayRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_id, message_id, author_id, channel_id, target_id, outcome, staged, fallbacks, send_error, created_at
		 FROM relays ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RelayRecord
	for rows.Next() {
		var (
			r         domain.RelayRecord
			sendError sql.NullString
		)
		if err := rows.Scan(&r.AttemptID, &r.MessageID, &r.AuthorID, &r.ChannelID, &r.TargetID,
			&r.Outcome, &r.Staged, &r.Fallbacks, &sendError, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SendError = sendError.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddCommand(ctx context.Context, rec domain.CommandRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (name, user_id, guild_id, target, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.UserID, rec.GuildID, rec.Target, rec.Result, rec.CreatedAt.UTC(),
	)
	return err
}

// RecentCommands returns up to limit records, newest first.
func (s *SQLiteStore) RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, user_id, guild_id, target, result, created_at
		 FROM commands ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CommandRecord
	for rows.Next() {
		var c domain.CommandRecord
		if err := rows.Scan(&c.Name, &c.UserID, &c.GuildID, &c.Target, &c.Result, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
