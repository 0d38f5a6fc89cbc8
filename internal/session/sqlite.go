package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS saved_configs (
	package_id  TEXT PRIMARY KEY,
	config_json BLOB NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// SQLiteStore persists configurations in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating when needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session database path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the configuration of packageID.
func (s *SQLiteStore) Save(ctx context.Context, packageID string, cfg domain.CurrentConfig) error {
	key, err := normalizeKey(packageID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_configs (package_id, config_json, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(package_id) DO UPDATE SET
		    config_json = excluded.config_json,
		    updated_at = excluded.updated_at`,
		key, raw, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	return nil
}

// Load reads the configuration saved for packageID.
func (s *SQLiteStore) Load(ctx context.Context, packageID string) (domain.CurrentConfig, error) {
	key, err := normalizeKey(packageID)
	if err != nil {
		return domain.CurrentConfig{}, err
	}

	var raw []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT config_json FROM saved_configs WHERE package_id = ?`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CurrentConfig{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return domain.CurrentConfig{}, fmt.Errorf("load configuration: %w", err)
	}
	return decode(raw)
}

// Delete removes the configuration saved for packageID.
func (s *SQLiteStore) Delete(ctx context.Context, packageID string) error {
	key, err := normalizeKey(packageID)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_configs WHERE package_id = ?`, key); err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	return nil
}
