package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

// PostgresStore is the Postgres-backed profile store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a profile store with a connection pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			identity   TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			language   TEXT NOT NULL DEFAULT 'en',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetProfile retrieves a profile by identity. Returns (nil, nil) when
// the identity is unknown.
func (s *PostgresStore) GetProfile(ctx context.Context, identity string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.pool.QueryRow(ctx, `
		SELECT identity, name, language, created_at, updated_at
		FROM profiles WHERE identity = $1
	`, identity).Scan(
		&profile.Identity,
		&profile.Name,
		&profile.Language,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// UpsertProfile creates or updates a profile record.
func (s *PostgresStore) UpsertProfile(ctx context.Context, identity, name, language string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (identity, name, language)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity) DO UPDATE
		SET name = EXCLUDED.name, language = EXCLUDED.language, updated_at = NOW()
		RETURNING identity, name, language, created_at, updated_at
	`, identity, name, language).Scan(
		&profile.Identity,
		&profile.Name,
		&profile.Language,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CountProfiles returns the number of stored profiles.
func (s *PostgresStore) CountProfiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}
