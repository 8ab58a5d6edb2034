package spotify

import (
	"context"
	"fmt"
	"sync"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// expiryMargin keeps a token from being handed out right at the edge of
	// its validity window.
	expiryMargin = 30 * time.Second

	exchangeTimeout = 15 * time.Second
)

// AppTokenSource holds the process-wide client-credentials bearer token used
// for catalog reads that need no user context (search, chart enrichment). It
// implements oauth2.TokenSource: the cached token is returned while valid and
// a single exchange runs when it expires, with concurrent callers serialized
// behind the mutex so each receives a valid unexpired token.
type AppTokenSource struct {
	mu        sync.Mutex
	conf      *clientcredentials.Config
	now       func() time.Time
	token     *oauth2.Token
	expiresAt time.Time
}

// NewAppTokenSource creates a token source performing the client-credentials
// grant against the Spotify accounts service.
func NewAppTokenSource(clientID, clientSecret string) *AppTokenSource {
	return &AppTokenSource{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
		now: time.Now,
	}
}

// Token returns the cached token while unexpired, otherwise performs a
// client-credentials exchange and caches the result.
func (s *AppTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.now().Before(s.expiresAt) {
		return s.token, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), exchangeTimeout)
	defer cancel()

	token, err := s.conf.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials exchange: %w", err)
	}

	s.token = token
	s.expiresAt = token.Expiry.Add(-expiryMargin)
	return token, nil
}
