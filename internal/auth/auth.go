// Package auth manages per-user Spotify OAuth credentials: the one-time
// authorization-code exchange when an account is linked, and silent refresh
// of the short-lived access token afterwards.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/recordcrate/recordcrate/internal/db"
)

const (
	// expiryMargin avoids handing out an access token right at the edge of
	// its validity window.
	expiryMargin = 30 * time.Second

	// exchangeTimeout bounds every call to the provider's token endpoint;
	// oauth2's default client would otherwise wait forever.
	exchangeTimeout = 15 * time.Second
)

// ExchangeError is returned when the provider rejects a code or refresh
// exchange. It carries the provider's error code and description so the
// caller can surface them; the same code must never be retried.
type ExchangeError struct {
	Code        string
	Description string
	Err         error
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token exchange rejected (%s): %s", e.Code, e.Description)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// TokenPersister stores token material on a user record. Implemented by
// db.UserRepository.
type TokenPersister interface {
	UpdateTokens(ctx context.Context, spotifyID, accessToken, refreshToken string, expiry time.Time) error
	UpdateAccessToken(ctx context.Context, spotifyID, accessToken string, expiry time.Time) error
}

// SpotifyConfig builds the OAuth2 configuration for the Spotify accounts
// service.
func SpotifyConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"user-read-email", "user-read-private"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

// TokenStore manages the OAuth token lifecycle for linked users.
type TokenStore struct {
	users   TokenPersister
	config  *oauth2.Config
	logger  *log.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewTokenStore creates a TokenStore persisting tokens through users.
func NewTokenStore(users TokenPersister, config *oauth2.Config, logger *log.Logger) *TokenStore {
	return &TokenStore{
		users:   users,
		config:  config,
		logger:  logger,
		now:     time.Now,
		timeout: exchangeTimeout,
	}
}

// AuthURL returns the provider authorization URL for the given state.
func (s *TokenStore) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange performs the one-time authorization-code exchange during the
// OAuth callback. Provider rejections (redirect-URI mismatch, consumed code)
// surface as *ExchangeError with the provider's detail.
func (s *TokenStore) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &ExchangeError{
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
				Err:         err,
			}
		}
		return nil, &ExchangeError{Code: "exchange_failed", Err: err}
	}
	return token, nil
}

// Link persists an exchanged token pair onto the user record.
func (s *TokenStore) Link(ctx context.Context, spotifyID string, token *oauth2.Token) error {
	if err := s.users.UpdateTokens(ctx, spotifyID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		return fmt.Errorf("storing token pair: %w", err)
	}
	return nil
}

// AccessToken returns a valid access token for the user, refreshing silently
// when the cached one has expired. An empty string means the user has never
// linked Spotify or the refresh was rejected; callers must treat that as
// "reauthorization required", not a transient failure.
func (s *TokenStore) AccessToken(ctx context.Context, user *db.User) string {
	if user.AccessToken != nil && user.TokenExpiry != nil &&
		s.now().Before(user.TokenExpiry.Add(-expiryMargin)) {
		return *user.AccessToken
	}
	return s.Refresh(ctx, user)
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it. On failure the stored tokens are left untouched and an empty
// string is returned.
func (s *TokenStore) Refresh(ctx context.Context, user *db.User) string {
	if user.RefreshToken == nil || *user.RefreshToken == "" {
		return ""
	}

	refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	source := s.config.TokenSource(refreshCtx, &oauth2.Token{RefreshToken: *user.RefreshToken})
	token, err := source.Token()
	if err != nil {
		s.logger.Warn("token refresh rejected, reauthorization required",
			"user", user.SpotifyID, "err", err)
		return ""
	}

	// Some providers rotate the refresh token on use.
	if token.RefreshToken != "" && token.RefreshToken != *user.RefreshToken {
		err = s.users.UpdateTokens(ctx, user.SpotifyID, token.AccessToken, token.RefreshToken, token.Expiry)
	} else {
		err = s.users.UpdateAccessToken(ctx, user.SpotifyID, token.AccessToken, token.Expiry)
	}
	if err != nil {
		s.logger.Error("persisting refreshed token", "user", user.SpotifyID, "err", err)
		return ""
	}

	user.AccessToken = &token.AccessToken
	user.TokenExpiry = &token.Expiry
	if token.RefreshToken != "" {
		user.RefreshToken = &token.RefreshToken
	}
	return token.AccessToken
}
