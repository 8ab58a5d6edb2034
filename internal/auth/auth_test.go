package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/recordcrate/recordcrate/internal/db"
)

type fakePersister struct {
	updateTokensCalls      int
	updateAccessTokenCalls int
	lastAccessToken        string
	lastRefreshToken       string
}

func (f *fakePersister) UpdateTokens(_ context.Context, _, accessToken, refreshToken string, _ time.Time) error {
	f.updateTokensCalls++
	f.lastAccessToken = accessToken
	f.lastRefreshToken = refreshToken
	return nil
}

func (f *fakePersister) UpdateAccessToken(_ context.Context, _, accessToken string, _ time.Time) error {
	f.updateAccessTokenCalls++
	f.lastAccessToken = accessToken
	return nil
}

func testUser(accessToken, refreshToken string, expiry time.Time) *db.User {
	user := &db.User{SpotifyID: "u1", DisplayName: "Test User"}
	if accessToken != "" {
		user.AccessToken = &accessToken
	}
	if refreshToken != "" {
		user.RefreshToken = &refreshToken
	}
	if !expiry.IsZero() {
		user.TokenExpiry = &expiry
	}
	return user
}

func newStore(persister TokenPersister, tokenURL string) *TokenStore {
	config := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	return NewTokenStore(persister, config, log.New(io.Discard))
}

func TestAccessTokenUsesCacheWithoutNetwork(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))
	defer server.Close()

	persister := &fakePersister{}
	store := newStore(persister, server.URL)

	user := testUser("cached-token", "refresh", time.Now().Add(time.Hour))
	if got := store.AccessToken(context.Background(), user); got != "cached-token" {
		t.Errorf("AccessToken() = %q, want %q", got, "cached-token")
	}
	if calls.Load() != 0 {
		t.Errorf("network calls = %d, want 0", calls.Load())
	}
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	persister := &fakePersister{}
	store := newStore(persister, server.URL)

	user := testUser("stale-token", "refresh", time.Now().Add(-time.Minute))
	if got := store.AccessToken(context.Background(), user); got != "fresh-token" {
		t.Errorf("AccessToken() = %q, want %q", got, "fresh-token")
	}
	if calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", calls.Load())
	}
	if persister.updateAccessTokenCalls != 1 {
		t.Errorf("UpdateAccessToken calls = %d, want 1", persister.updateAccessTokenCalls)
	}
	if persister.lastAccessToken != "fresh-token" {
		t.Errorf("persisted token = %q, want %q", persister.lastAccessToken, "fresh-token")
	}
	if user.AccessToken == nil || *user.AccessToken != "fresh-token" {
		t.Error("user record not updated with refreshed token")
	}
}

func TestAccessTokenExpiringInsideMarginRefreshes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	store := newStore(&fakePersister{}, server.URL)

	// Valid for 10 more seconds, inside the 30s safety margin.
	user := testUser("edge-token", "refresh", time.Now().Add(10*time.Second))
	if got := store.AccessToken(context.Background(), user); got != "fresh-token" {
		t.Errorf("AccessToken() = %q, want refresh inside margin", got)
	}
}

func TestRefreshFailureLeavesTokensUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Refresh token revoked",
		})
	}))
	defer server.Close()

	persister := &fakePersister{}
	store := newStore(persister, server.URL)

	user := testUser("stale-token", "revoked-refresh", time.Now().Add(-time.Minute))
	if got := store.AccessToken(context.Background(), user); got != "" {
		t.Errorf("AccessToken() = %q, want empty (reauthorization required)", got)
	}
	if persister.updateTokensCalls != 0 || persister.updateAccessTokenCalls != 0 {
		t.Error("stored tokens must stay untouched on refresh failure")
	}
	if user.AccessToken == nil || *user.AccessToken != "stale-token" {
		t.Error("in-memory user tokens must stay untouched on refresh failure")
	}
}

func TestAccessTokenWithoutRefreshToken(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	store := newStore(&fakePersister{}, server.URL)

	user := testUser("", "", time.Time{})
	if got := store.AccessToken(context.Background(), user); got != "" {
		t.Errorf("AccessToken() = %q, want empty for never-linked user", got)
	}
	if calls.Load() != 0 {
		t.Errorf("network calls = %d, want 0", calls.Load())
	}
}

// hangingServer never answers; requests end only when the client gives up.
func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
}

func TestExchangeTimesOutAgainstStalledProvider(t *testing.T) {
	server := hangingServer(t)
	defer server.Close()

	store := newStore(&fakePersister{}, server.URL)
	store.timeout = 100 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := store.Exchange(context.Background(), "code")
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Exchange() error = nil, want timeout error")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Exchange did not give up on a stalled provider")
	}
}

func TestRefreshTimesOutAgainstStalledProvider(t *testing.T) {
	server := hangingServer(t)
	defer server.Close()

	persister := &fakePersister{}
	store := newStore(persister, server.URL)
	store.timeout = 100 * time.Millisecond

	user := testUser("stale-token", "refresh", time.Now().Add(-time.Minute))
	done := make(chan string, 1)
	go func() {
		done <- store.AccessToken(context.Background(), user)
	}()

	select {
	case got := <-done:
		if got != "" {
			t.Errorf("AccessToken() = %q, want empty after timeout", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("refresh did not give up on a stalled provider")
	}
	if persister.updateTokensCalls != 0 || persister.updateAccessTokenCalls != 0 {
		t.Error("stored tokens must stay untouched when the refresh times out")
	}
}

func TestExchangeCarriesProviderDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid authorization code",
		})
	}))
	defer server.Close()

	store := newStore(&fakePersister{}, server.URL)

	_, err := store.Exchange(context.Background(), "consumed-code")
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("Exchange() error = %v, want *ExchangeError", err)
	}
	if exchangeErr.Code != "invalid_grant" {
		t.Errorf("Code = %q, want %q", exchangeErr.Code, "invalid_grant")
	}
	if exchangeErr.Description != "Invalid authorization code" {
		t.Errorf("Description = %q, want provider description", exchangeErr.Description)
	}
}

func TestExchangeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	store := newStore(&fakePersister{}, server.URL)

	token, err := store.Exchange(context.Background(), "fresh-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token.AccessToken != "access" || token.RefreshToken != "refresh" {
		t.Errorf("unexpected token pair: %q / %q", token.AccessToken, token.RefreshToken)
	}
}
