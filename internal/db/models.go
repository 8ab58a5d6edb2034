package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/recordcrate/recordcrate/internal/rating"
)

// User represents a RecordCrate user identified by their Spotify ID. The
// token columns hold the user's Spotify OAuth credentials once the account
// has been linked; they stay nil for users who never linked.
type User struct {
	SpotifyID    string     `json:"spotifyId"`
	DisplayName  string     `json:"displayName"`
	AvatarURL    string     `json:"avatarUrl"`
	AccessToken  *string    `json:"-"`
	RefreshToken *string    `json:"-"`
	TokenExpiry  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ScoreModifiers are signed adjustments a reviewer can apply on top of the
// base rating derived from per-track scores.
type ScoreModifiers struct {
	EmotionalStoryConnection  float64 `json:"emotionalStoryConnection"`
	CohesionAndFlow           float64 `json:"cohesionAndFlow"`
	ArtistIdentityOriginality float64 `json:"artistIdentityOriginality"`
	VisualAestheticEcosystem  float64 `json:"visualAestheticEcosystem"`
}

// AlbumReview is a user's review of one album. At most one review exists per
// (UserSpotifyID, AlbumID) pair.
type AlbumReview struct {
	ID                    uuid.UUID           `json:"id"`
	UserSpotifyID         string              `json:"userSpotifyId"`
	AlbumID               string              `json:"albumId"`
	OverallRating         int                 `json:"overallRating"`
	BaseOverallRating     *float64            `json:"baseOverallRating,omitempty"`
	AdjustedOverallRating *float64            `json:"adjustedOverallRating,omitempty"`
	ScoreModifiers        *ScoreModifiers     `json:"scoreModifiers,omitempty"`
	SongRatings           []rating.SongRating `json:"songRatings"`
	Writeup               string              `json:"writeup"`
	AlbumName             string              `json:"albumName"`
	AlbumArtists          []string            `json:"albumArtists"`
	AlbumImage            string              `json:"albumImage"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}
