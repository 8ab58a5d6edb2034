package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a user by Spotify ID.
func (r *UserRepository) Get(ctx context.Context, spotifyID string) (*User, error) {
	query := `
		SELECT spotify_id, display_name, avatar_url, access_token, refresh_token, token_expiry, created_at, updated_at
		FROM users
		WHERE spotify_id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, spotifyID).Scan(
		&user.SpotifyID,
		&user.DisplayName,
		&user.AvatarURL,
		&user.AccessToken,
		&user.RefreshToken,
		&user.TokenExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// Upsert creates a user on first sync or refreshes the profile fields on
// re-sync. Stored OAuth tokens are left untouched.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (spotify_id, display_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.SpotifyID,
		user.DisplayName,
		user.AvatarURL,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// UpdateTokens stores a full token pair for a user, typically after the
// one-time authorization-code exchange.
func (r *UserRepository) UpdateTokens(ctx context.Context, spotifyID, accessToken, refreshToken string, expiry time.Time) error {
	query := `
		UPDATE users
		SET access_token = $2, refresh_token = $3, token_expiry = $4, updated_at = NOW()
		WHERE spotify_id = $1
	`
	result, err := r.pool.Exec(ctx, query, spotifyID, accessToken, refreshToken, expiry)
	if err != nil {
		return fmt.Errorf("updating user tokens: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccessToken stores a refreshed access token and expiry, leaving the
// long-lived refresh token as is.
func (r *UserRepository) UpdateAccessToken(ctx context.Context, spotifyID, accessToken string, expiry time.Time) error {
	query := `
		UPDATE users
		SET access_token = $2, token_expiry = $3, updated_at = NOW()
		WHERE spotify_id = $1
	`
	result, err := r.pool.Exec(ctx, query, spotifyID, accessToken, expiry)
	if err != nil {
		return fmt.Errorf("updating access token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
