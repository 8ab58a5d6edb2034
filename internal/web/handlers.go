package web

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/recordcrate/recordcrate/internal/auth"
	"github.com/recordcrate/recordcrate/internal/charts"
	"github.com/recordcrate/recordcrate/internal/db"
	"github.com/recordcrate/recordcrate/internal/rating"
	"github.com/recordcrate/recordcrate/internal/spotify"
	"github.com/recordcrate/recordcrate/internal/suggest"
)

// maxWriteupLength caps the review writeup.
const maxWriteupLength = 350

// ReviewStore is the review persistence contract. Implemented by
// db.ReviewRepository.
type ReviewStore interface {
	Upsert(ctx context.Context, review *db.AlbumReview) (*db.AlbumReview, error)
	GetByAlbum(ctx context.Context, albumID string, limit int) ([]db.AlbumReview, error)
	GetByUser(ctx context.Context, spotifyID, albumID string) ([]db.AlbumReview, error)
	RecentFeed(ctx context.Context, limit int) ([]db.AlbumReview, error)
	Delete(ctx context.Context, userSpotifyID, albumID string) (*db.AlbumReview, error)
}

// UserStore is the user persistence contract. Implemented by
// db.UserRepository.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
	Get(ctx context.Context, spotifyID string) (*db.User, error)
}

// ChartProvider serves paginated enriched chart entries. Implemented by
// charts.Cache.
type ChartProvider interface {
	Page(ctx context.Context, limit, offset int) []charts.EnrichedTrack
}

// Catalog exposes the album catalog lookups backing search and review
// creation. Implemented by spotify.Client.
type Catalog interface {
	SearchAlbums(ctx context.Context, query string, limit int) ([]spotify.AlbumSummary, error)
	GetAlbum(ctx context.Context, id string) (*spotify.Album, error)
}

// Suggester produces search suggestions. Implemented by suggest.Service.
type Suggester interface {
	Suggest(ctx context.Context, query string) []suggest.Suggestion
}

// Handlers contains the HTTP handlers for the REST API.
type Handlers struct {
	reviews    ReviewStore
	users      UserStore
	tokens     *auth.TokenStore
	charts     ChartProvider
	catalog    Catalog
	suggester  Suggester
	linkStates *linkStateStore
	logger     *log.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(reviews ReviewStore, users UserStore, tokens *auth.TokenStore, chartProvider ChartProvider, catalog Catalog, suggester Suggester, logger *log.Logger) *Handlers {
	return &Handlers{
		reviews:    reviews,
		users:      users,
		tokens:     tokens,
		charts:     chartProvider,
		catalog:    catalog,
		suggester:  suggester,
		linkStates: newLinkStateStore(),
		logger:     logger,
	}
}

type reviewRequest struct {
	UserSpotifyID         string              `json:"userSpotifyId"`
	AlbumID               string              `json:"albumId"`
	OverallRating         *float64            `json:"overallRating"`
	BaseOverallRating     *float64            `json:"baseOverallRating"`
	AdjustedOverallRating *float64            `json:"adjustedOverallRating"`
	ScoreModifiers        *db.ScoreModifiers  `json:"scoreModifiers"`
	SongRatings           []rating.SongRating `json:"songRatings"`
	Writeup               string              `json:"writeup"`
	AlbumName             string              `json:"albumName"`
	AlbumArtists          []string            `json:"albumArtists"`
	AlbumImage            string              `json:"albumImage"`
}

// UpsertReview handles POST /reviews. Validation happens before any I/O; the
// overall rating is either supplied directly or derived from the per-track
// star ratings, and always passes through ClampPercent before persistence.
func (h *Handlers) UpsertReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserSpotifyID == "" || req.AlbumID == "" {
		jsonError(w, http.StatusBadRequest, "userSpotifyId and albumId are required")
		return
	}
	if utf8.RuneCountInString(req.Writeup) > maxWriteupLength {
		jsonError(w, http.StatusBadRequest, "writeup exceeds 350 characters")
		return
	}

	// Persisted track ratings stay on the half-star grid, matching what the
	// derived overall is computed from.
	for i := range req.SongRatings {
		req.SongRatings[i].Rating = rating.SnapStars(req.SongRatings[i].Rating)
	}

	var overall int
	switch {
	case req.OverallRating != nil:
		if math.IsNaN(*req.OverallRating) || math.IsInf(*req.OverallRating, 0) {
			jsonError(w, http.StatusBadRequest, "overallRating must be a finite number")
			return
		}
		overall = rating.ClampPercent(*req.OverallRating)
	case len(req.SongRatings) > 0:
		derived, err := rating.StarsToPercent(req.SongRatings)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		overall = derived
	default:
		jsonError(w, http.StatusBadRequest, "overallRating or songRatings is required")
		return
	}

	review := &db.AlbumReview{
		UserSpotifyID:         req.UserSpotifyID,
		AlbumID:               req.AlbumID,
		OverallRating:         overall,
		BaseOverallRating:     req.BaseOverallRating,
		AdjustedOverallRating: req.AdjustedOverallRating,
		ScoreModifiers:        req.ScoreModifiers,
		SongRatings:           req.SongRatings,
		Writeup:               req.Writeup,
		AlbumName:             req.AlbumName,
		AlbumArtists:          req.AlbumArtists,
		AlbumImage:            req.AlbumImage,
	}

	stored, err := h.reviews.Upsert(r.Context(), review)
	if err != nil {
		h.logger.Error("upserting review", "user", req.UserSpotifyID, "album", req.AlbumID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to save review")
		return
	}
	jsonResponse(w, http.StatusOK, stored)
}

// ReviewsByAlbum handles GET /reviews/album/{albumID}.
func (h *Handlers) ReviewsByAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumID")
	limit := queryInt(r, "limit", db.DefaultAlbumLimit)

	reviews, err := h.reviews.GetByAlbum(r.Context(), albumID, limit)
	if err != nil {
		h.logger.Error("listing album reviews", "album", albumID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}
	jsonResponse(w, http.StatusOK, reviews)
}

// ReviewsByUser handles GET /reviews/user/{spotifyID}?albumId=.
func (h *Handlers) ReviewsByUser(w http.ResponseWriter, r *http.Request) {
	spotifyID := chi.URLParam(r, "spotifyID")
	albumID := r.URL.Query().Get("albumId")

	reviews, err := h.reviews.GetByUser(r.Context(), spotifyID, albumID)
	if err != nil {
		h.logger.Error("listing user reviews", "user", spotifyID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}
	jsonResponse(w, http.StatusOK, reviews)
}

// RecentFeed handles GET /reviews/feed.
func (h *Handlers) RecentFeed(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", db.DefaultFeedLimit)

	reviews, err := h.reviews.RecentFeed(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing review feed", "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}
	jsonResponse(w, http.StatusOK, reviews)
}

// DeleteReview handles DELETE /reviews/{userSpotifyID}/{albumID}. Deleting
// an absent review reports 404 on the first call and every one after it.
func (h *Handlers) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userSpotifyID := chi.URLParam(r, "userSpotifyID")
	albumID := chi.URLParam(r, "albumID")

	deleted, err := h.reviews.Delete(r.Context(), userSpotifyID, albumID)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		h.logger.Error("deleting review", "user", userSpotifyID, "album", albumID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete review")
		return
	}
	jsonResponse(w, http.StatusOK, deleted)
}

type syncUserRequest struct {
	SpotifyID   string `json:"spotifyId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// SyncUser handles POST /users/sync: create on first sync, refresh the
// profile fields afterwards.
func (h *Handlers) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SpotifyID == "" {
		jsonError(w, http.StatusBadRequest, "spotifyId is required")
		return
	}

	user := &db.User{
		SpotifyID:   req.SpotifyID,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}
	if err := h.users.Upsert(r.Context(), user); err != nil {
		h.logger.Error("syncing user", "user", req.SpotifyID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to sync user")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// ChartTop handles GET /charts/top. Chart ingestion never fails; the worst
// case is the built-in sample data.
func (h *Handlers) ChartTop(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	jsonResponse(w, http.StatusOK, h.charts.Page(r.Context(), limit, offset))
}

// SearchAlbums handles GET /albums/search?q=&limit=.
func (h *Handlers) SearchAlbums(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, http.StatusBadRequest, "q is required")
		return
	}

	albums, err := h.catalog.SearchAlbums(r.Context(), query, queryInt(r, "limit", 20))
	if err != nil {
		h.logger.Error("searching catalog", "query", query, "err", err)
		jsonError(w, http.StatusBadGateway, "catalog search failed")
		return
	}
	jsonResponse(w, http.StatusOK, albums)
}

// GetAlbum handles GET /albums/{albumID}: the full album with its track
// listing, for building the per-track rating form.
func (h *Handlers) GetAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumID")

	album, err := h.catalog.GetAlbum(r.Context(), albumID)
	if err != nil {
		h.logger.Error("fetching album", "album", albumID, "err", err)
		jsonError(w, http.StatusBadGateway, "album lookup failed")
		return
	}
	jsonResponse(w, http.StatusOK, album)
}

// SearchSuggest handles GET /search/suggest?q=.
func (h *Handlers) SearchSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, http.StatusBadRequest, "q is required")
		return
	}
	jsonResponse(w, http.StatusOK, h.suggester.Suggest(r.Context(), query))
}

// LinkSpotify handles GET /auth/spotify/link?user=: starts the OAuth flow
// binding the resulting tokens to the given user.
func (h *Handlers) LinkSpotify(w http.ResponseWriter, r *http.Request) {
	userSpotifyID := r.URL.Query().Get("user")
	if userSpotifyID == "" {
		jsonError(w, http.StatusBadRequest, "user is required")
		return
	}

	state, err := h.linkStates.Create(userSpotifyID)
	if err != nil {
		h.logger.Error("creating link state", "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to start link flow")
		return
	}
	http.Redirect(w, r, h.tokens.AuthURL(state), http.StatusTemporaryRedirect)
}

// SpotifyToken handles GET /auth/spotify/token?user=: returns a valid access
// token for the linked account, refreshing silently when the cached one has
// expired. An empty token from the store means the user must relink, which
// surfaces as 401.
func (h *Handlers) SpotifyToken(w http.ResponseWriter, r *http.Request) {
	userSpotifyID := r.URL.Query().Get("user")
	if userSpotifyID == "" {
		jsonError(w, http.StatusBadRequest, "user is required")
		return
	}

	user, err := h.users.Get(r.Context(), userSpotifyID)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("loading user", "user", userSpotifyID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	accessToken := h.tokens.AccessToken(r.Context(), user)
	if accessToken == "" {
		jsonError(w, http.StatusUnauthorized, "spotify reauthorization required")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

// SpotifyCallback handles GET /callback/spotify: exchanges the one-time code
// and persists the token pair on the pending user.
func (h *Handlers) SpotifyCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		jsonError(w, http.StatusBadRequest, "authorization rejected: "+errMsg)
		return
	}

	userSpotifyID, ok := h.linkStates.Consume(r.URL.Query().Get("state"))
	if !ok {
		jsonError(w, http.StatusBadRequest, "unknown or expired state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		jsonError(w, http.StatusBadRequest, "code is required")
		return
	}

	token, err := h.tokens.Exchange(r.Context(), code)
	if err != nil {
		var exchangeErr *auth.ExchangeError
		if errors.As(err, &exchangeErr) {
			jsonError(w, http.StatusBadRequest, exchangeErr.Error())
			return
		}
		h.logger.Error("exchanging authorization code", "err", err)
		jsonError(w, http.StatusInternalServerError, "token exchange failed")
		return
	}

	if err := h.tokens.Link(r.Context(), userSpotifyID, token); err != nil {
		h.logger.Error("linking spotify account", "user", userSpotifyID, "err", err)
		jsonError(w, http.StatusInternalServerError, "failed to store tokens")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"linked": true, "userSpotifyId": userSpotifyID})
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
