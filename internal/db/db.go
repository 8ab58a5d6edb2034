// Package db provides PostgreSQL persistence for RecordCrate.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Initialize creates the schema if it does not exist. The unique constraint
// on (user_spotify_id, album_id) is what enforces one review per user per
// album; ReviewRepository.Upsert relies on it instead of application-level
// locking.
func (db *DB) Initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			spotify_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS album_reviews (
			id UUID PRIMARY KEY,
			user_spotify_id TEXT NOT NULL,
			album_id TEXT NOT NULL,
			overall_rating DOUBLE PRECISION NOT NULL,
			base_overall_rating DOUBLE PRECISION,
			adjusted_overall_rating DOUBLE PRECISION,
			score_modifiers JSONB,
			song_ratings JSONB NOT NULL DEFAULT '[]',
			writeup TEXT NOT NULL DEFAULT '',
			album_name TEXT NOT NULL DEFAULT '',
			album_artists TEXT[] NOT NULL DEFAULT '{}',
			album_image TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_spotify_id, album_id)
		)`,
		`CREATE INDEX IF NOT EXISTS album_reviews_album_created_idx
			ON album_reviews (album_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS album_reviews_user_updated_idx
			ON album_reviews (user_spotify_id, updated_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Pool returns the underlying connection pool for advanced operations.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Users returns a UserRepository.
func (db *DB) Users() *UserRepository {
	return &UserRepository{pool: db.pool}
}

// Reviews returns a ReviewRepository.
func (db *DB) Reviews() *ReviewRepository {
	return &ReviewRepository{pool: db.pool}
}
