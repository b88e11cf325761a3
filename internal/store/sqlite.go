package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

// SQLiteStore is the SQLite-backed profile store for single-node and
// development deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and
// initializes the schema. An empty dbPath defaults to
// "./data/chitchat.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chitchat.db"
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		identity   TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		language   TEXT NOT NULL DEFAULT 'en',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile retrieves a profile by identity. Returns (nil, nil) when
// the identity is unknown.
func (s *SQLiteStore) GetProfile(ctx context.Context, identity string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT identity, name, language, created_at, updated_at
		FROM profiles WHERE identity = ?
	`, identity).Scan(
		&profile.Identity,
		&profile.Name,
		&profile.Language,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// UpsertProfile creates or updates a profile record.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, identity, name, language string) (*models.Profile, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (identity, name, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO UPDATE
		SET name = excluded.name, language = excluded.language, updated_at = excluded.updated_at
	`, identity, name, language, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, identity)
}

// CountProfiles returns the number of stored profiles.
func (s *SQLiteStore) CountProfiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}
