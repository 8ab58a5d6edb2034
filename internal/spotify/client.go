// Package spotify provides the Spotify Web API client used for catalog reads.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// ErrNoMatch is returned by FindTrack when the catalog has no result for the
// given title and artist.
var ErrNoMatch = errors.New("no catalog match")

// Client wraps the Spotify API client with convenience methods. All calls are
// paced through a shared rate limiter so chart enrichment cannot hammer the
// search endpoint.
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
}

// New creates a catalog client authenticated by the given token source,
// typically an AppTokenSource.
func New(ctx context.Context, source oauth2.TokenSource) *Client {
	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = 15 * time.Second
	return NewWithAPI(spotify.New(httpClient))
}

// NewWithAPI wraps an already constructed API client.
func NewWithAPI(api *spotify.Client) *Client {
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
	}
}

// NewWithHTTPClient builds the catalog client over a custom HTTP client.
func NewWithHTTPClient(httpClient *http.Client) *Client {
	return NewWithAPI(spotify.New(httpClient))
}

// SearchAlbums searches the catalog for albums matching the query.
func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) ([]AlbumSummary, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := c.api.Search(ctx, query, spotify.SearchTypeAlbum, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching albums: %w", err)
	}
	if results.Albums == nil {
		return []AlbumSummary{}, nil
	}

	albums := make([]AlbumSummary, 0, len(results.Albums.Albums))
	for _, a := range results.Albums.Albums {
		albums = append(albums, AlbumSummary{
			ID:          a.ID.String(),
			Name:        a.Name,
			Artists:     artistNames(a.Artists),
			ImageURL:    firstImageURL(a.Images),
			ReleaseDate: a.ReleaseDate,
		})
	}
	return albums, nil
}

// GetAlbum fetches a full album with its track listing.
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	full, err := c.api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("fetching album %s: %w", id, err)
	}

	album := &Album{
		AlbumSummary: AlbumSummary{
			ID:          full.ID.String(),
			Name:        full.Name,
			Artists:     artistNames(full.Artists),
			ImageURL:    firstImageURL(full.Images),
			ReleaseDate: full.ReleaseDate,
		},
		Tracks: make([]AlbumTrack, 0, len(full.Tracks.Tracks)),
	}
	for _, t := range full.Tracks.Tracks {
		album.Tracks = append(album.Tracks, AlbumTrack{
			ID:          t.ID.String(),
			Name:        t.Name,
			TrackNumber: int(t.TrackNumber),
			DurationMs:  int(t.Duration),
			Artists:     artistNames(t.Artists),
		})
	}
	return album, nil
}

// FindTrack resolves a (title, artist) pair to its best catalog match.
// Returns ErrNoMatch when the search comes back empty.
func (c *Client) FindTrack(ctx context.Context, title, artist string) (*TrackMatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("track:%s artist:%s", title, artist)
	results, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("searching track: %w", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, ErrNoMatch
	}

	t := results.Tracks.Tracks[0]
	match := &TrackMatch{
		ID:        t.ID.String(),
		Title:     t.Name,
		AlbumID:   t.Album.ID.String(),
		AlbumName: t.Album.Name,
		ImageURL:  firstImageURL(t.Album.Images),
	}
	if len(t.Artists) > 0 {
		match.Artist = t.Artists[0].Name
	}
	return match, nil
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}

func firstImageURL(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
