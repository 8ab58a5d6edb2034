// Package suggest produces natural-language search suggestions. A
// generative text API is consulted when configured; any failure there falls
// back to a deterministic keyword heuristic so the endpoint never fails.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

	promptTemplate = `You are a music search assistant. A user typed the query %q.
Respond with JSON only, no prose, shaped as:
{"suggestions":[{"query":"...","reason":"..."}]}
Give at most 5 album or artist search queries that match the mood, genre, or era the user described.`
)

// ErrEmptyResponse is returned when the model reply carries no usable
// suggestion payload.
var ErrEmptyResponse = errors.New("model returned no suggestions")

// Suggestion is one proposed catalog search.
type Suggestion struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

// Client calls a generative text API that answers with a structured JSON
// payload embedded in the response text.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a suggestion client for the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Suggest asks the model for search suggestions matching the query.
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	reqBody := generateRequest{
		Contents: []generateContent{
			{Parts: []generatePart{{Text: fmt.Sprintf(promptTemplate, query)}}},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model API returned %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	text := stripCodeFence(gen.Candidates[0].Content.Parts[0].Text)
	var parsed struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parsing suggestion payload: %w", err)
	}
	if len(parsed.Suggestions) == 0 {
		return nil, ErrEmptyResponse
	}
	return parsed.Suggestions, nil
}

// stripCodeFence removes a surrounding markdown code fence the model often
// wraps its JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
