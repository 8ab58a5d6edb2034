package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recordcrate/recordcrate/internal/rating"
)

// Default and maximum result limits for review queries.
const (
	DefaultAlbumLimit = 100
	DefaultUserLimit  = 200
	DefaultFeedLimit  = 200
)

const reviewColumns = `id, user_spotify_id, album_id, overall_rating, base_overall_rating,
	adjusted_overall_rating, score_modifiers, song_ratings, writeup, album_name,
	album_artists, album_image, created_at, updated_at`

// ReviewRepository handles album review database operations.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates a review for (UserSpotifyID, AlbumID) or updates the
// existing one in place. The write is a single INSERT ... ON CONFLICT
// statement, so concurrent writers for the same key can never produce a
// duplicate row: the last writer wins and created_at is preserved across
// updates. The resulting full row is returned.
func (r *ReviewRepository) Upsert(ctx context.Context, review *AlbumReview) (*AlbumReview, error) {
	songRatings, err := json.Marshal(review.SongRatings)
	if err != nil {
		return nil, fmt.Errorf("encoding song ratings: %w", err)
	}

	var scoreModifiers []byte
	if review.ScoreModifiers != nil {
		scoreModifiers, err = json.Marshal(review.ScoreModifiers)
		if err != nil {
			return nil, fmt.Errorf("encoding score modifiers: %w", err)
		}
	}

	albumArtists := review.AlbumArtists
	if albumArtists == nil {
		albumArtists = []string{}
	}

	query := `
		INSERT INTO album_reviews (id, user_spotify_id, album_id, overall_rating,
			base_overall_rating, adjusted_overall_rating, score_modifiers, song_ratings,
			writeup, album_name, album_artists, album_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (user_spotify_id, album_id) DO UPDATE SET
			overall_rating = EXCLUDED.overall_rating,
			base_overall_rating = EXCLUDED.base_overall_rating,
			adjusted_overall_rating = EXCLUDED.adjusted_overall_rating,
			score_modifiers = EXCLUDED.score_modifiers,
			song_ratings = EXCLUDED.song_ratings,
			writeup = EXCLUDED.writeup,
			album_name = EXCLUDED.album_name,
			album_artists = EXCLUDED.album_artists,
			album_image = EXCLUDED.album_image,
			updated_at = NOW()
		RETURNING ` + reviewColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		review.UserSpotifyID,
		review.AlbumID,
		review.OverallRating,
		review.BaseOverallRating,
		review.AdjustedOverallRating,
		scoreModifiers,
		songRatings,
		review.Writeup,
		review.AlbumName,
		albumArtists,
		review.AlbumImage,
	)
	stored, err := scanReview(row)
	if err != nil {
		return nil, fmt.Errorf("upserting review: %w", err)
	}
	return stored, nil
}

// GetByAlbum returns reviews for an album, newest created first.
func (r *ReviewRepository) GetByAlbum(ctx context.Context, albumID string, limit int) ([]AlbumReview, error) {
	if limit <= 0 || limit > DefaultAlbumLimit {
		limit = DefaultAlbumLimit
	}
	query := `
		SELECT ` + reviewColumns + `
		FROM album_reviews
		WHERE album_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, albumID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying album reviews: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// GetByUser returns a user's reviews, newest updated first, optionally
// filtered to a single album.
func (r *ReviewRepository) GetByUser(ctx context.Context, spotifyID, albumID string) ([]AlbumReview, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM album_reviews
		WHERE user_spotify_id = $1
	`
	args := []any{spotifyID}
	if albumID != "" {
		query += ` AND album_id = $2`
		args = append(args, albumID)
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT %d`, DefaultUserLimit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying user reviews: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// RecentFeed returns the most recently created reviews across all users.
func (r *ReviewRepository) RecentFeed(ctx context.Context, limit int) ([]AlbumReview, error) {
	if limit <= 0 || limit > DefaultFeedLimit {
		limit = DefaultFeedLimit
	}
	query := `
		SELECT ` + reviewColumns + `
		FROM album_reviews
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent reviews: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// Delete removes the review matching the compound key and returns the
// deleted row. Returns ErrNotFound when no row matches, on the first call
// and on every subsequent one.
func (r *ReviewRepository) Delete(ctx context.Context, userSpotifyID, albumID string) (*AlbumReview, error) {
	query := `
		DELETE FROM album_reviews
		WHERE user_spotify_id = $1 AND album_id = $2
		RETURNING ` + reviewColumns

	row := r.pool.QueryRow(ctx, query, userSpotifyID, albumID)
	review, err := scanReview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deleting review: %w", err)
	}
	return review, nil
}

// scanReview scans one review row. Stored overall ratings pass through the
// legacy-scale migration exactly once here, so records written under the old
// 0-5 convention surface as canonical percentages.
func scanReview(row pgx.Row) (*AlbumReview, error) {
	var (
		review         AlbumReview
		overall        float64
		songRatings    []byte
		scoreModifiers []byte
	)
	err := row.Scan(
		&review.ID,
		&review.UserSpotifyID,
		&review.AlbumID,
		&overall,
		&review.BaseOverallRating,
		&review.AdjustedOverallRating,
		&scoreModifiers,
		&songRatings,
		&review.Writeup,
		&review.AlbumName,
		&review.AlbumArtists,
		&review.AlbumImage,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	review.OverallRating = rating.NormalizeStored(overall)

	if err := json.Unmarshal(songRatings, &review.SongRatings); err != nil {
		return nil, fmt.Errorf("decoding song ratings: %w", err)
	}
	if review.SongRatings == nil {
		review.SongRatings = []rating.SongRating{}
	}
	if len(scoreModifiers) > 0 {
		review.ScoreModifiers = &ScoreModifiers{}
		if err := json.Unmarshal(scoreModifiers, review.ScoreModifiers); err != nil {
			return nil, fmt.Errorf("decoding score modifiers: %w", err)
		}
	}
	return &review, nil
}

func collectReviews(rows pgx.Rows) ([]AlbumReview, error) {
	reviews := []AlbumReview{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviews: %w", err)
	}
	return reviews, nil
}
