// Package web provides the JSON REST API for RecordCrate.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// linkStateTTL bounds how long an OAuth link flow may stay pending.
const linkStateTTL = 5 * time.Minute

type pendingLink struct {
	userSpotifyID string
	createdAt     time.Time
}

// linkStateStore binds an OAuth state parameter to the user who initiated
// the Spotify link flow, so the callback can attribute the exchanged tokens.
type linkStateStore struct {
	mu     sync.Mutex
	states map[string]pendingLink
	now    func() time.Time
}

func newLinkStateStore() *linkStateStore {
	return &linkStateStore{
		states: make(map[string]pendingLink),
		now:    time.Now,
	}
}

// Create registers a new pending link and returns its state token.
func (s *linkStateStore) Create(userSpotifyID string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)

	s.mu.Lock()
	s.states[state] = pendingLink{userSpotifyID: userSpotifyID, createdAt: s.now()}
	s.mu.Unlock()
	return state, nil
}

// Consume resolves a state token to its user exactly once. Unknown or
// expired states return false.
func (s *linkStateStore) Consume(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.states[state]
	if !ok {
		return "", false
	}
	delete(s.states, state)

	if s.now().Sub(pending.createdAt) > linkStateTTL {
		return "", false
	}
	return pending.userSpotifyID, true
}
