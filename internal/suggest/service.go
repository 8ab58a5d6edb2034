package suggest

import (
	"context"

	"github.com/charmbracelet/log"
)

// Generator produces suggestions for a query. Implemented by Client.
type Generator interface {
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
}

// Service fronts the generative client with the deterministic fallback.
type Service struct {
	client Generator
	logger *log.Logger
}

// NewService creates a suggestion service. A nil client means the generative
// API is not configured and every query uses the fallback.
func NewService(client Generator, logger *log.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Suggest returns suggestions for the query. Generative failures degrade to
// the keyword heuristic; this never returns an empty list or an error.
func (s *Service) Suggest(ctx context.Context, query string) []Suggestion {
	if s.client != nil {
		suggestions, err := s.client.Suggest(ctx, query)
		if err == nil {
			return suggestions
		}
		s.logger.Warn("generative suggestions unavailable, using keyword fallback", "err", err)
	}
	return FallbackSuggestions(query)
}
