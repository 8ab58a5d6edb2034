package charts

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/recordcrate/recordcrate/internal/spotify"
)

// TrackFinder resolves a chart entry to catalog metadata. Implemented by
// spotify.Client.
type TrackFinder interface {
	FindTrack(ctx context.Context, title, artist string) (*spotify.TrackMatch, error)
}

// SkippedTrack records a chart entry that could not be matched in the
// catalog: title, artist and the rank the list should have shown it at.
type SkippedTrack struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// EnrichedTrack is a chart entry resolved to the catalog. Skipped carries
// the unmatched neighbors preceding this entry so the audit trail of what
// the ranked list should have contained is preserved rather than dropped.
type EnrichedTrack struct {
	Rank      int            `json:"rank"`
	Title     string         `json:"title"`
	Artist    string         `json:"artist"`
	SpotifyID string         `json:"spotifyId"`
	AlbumID   string         `json:"albumId"`
	AlbumName string         `json:"albumName"`
	ImageURL  string         `json:"imageUrl"`
	Skipped   []SkippedTrack `json:"skipped,omitempty"`
}

// Enricher resolves chart entries against the catalog.
type Enricher struct {
	finder TrackFinder
	logger *log.Logger
}

// NewEnricher creates an Enricher over the given catalog finder.
func NewEnricher(finder TrackFinder, logger *log.Logger) *Enricher {
	return &Enricher{finder: finder, logger: logger}
}

// Enrich resolves each entry best-effort. Unmatched entries are attached as
// Skipped metadata to the nearest previously matched entry; misses at the
// head of the list attach to the first entry that does match.
func (e *Enricher) Enrich(ctx context.Context, tracks []ChartTrack) []EnrichedTrack {
	enriched := []EnrichedTrack{}
	var leading []SkippedTrack

	for _, t := range tracks {
		match, err := e.finder.FindTrack(ctx, t.Title, t.Artist)
		if err != nil {
			e.logger.Debug("no catalog match for chart entry",
				"rank", t.Rank, "title", t.Title, "artist", t.Artist, "err", err)
			skipped := SkippedTrack{Rank: t.Rank, Title: t.Title, Artist: t.Artist}
			if len(enriched) > 0 {
				last := &enriched[len(enriched)-1]
				last.Skipped = append(last.Skipped, skipped)
			} else {
				leading = append(leading, skipped)
			}
			continue
		}

		entry := EnrichedTrack{
			Rank:      t.Rank,
			Title:     t.Title,
			Artist:    t.Artist,
			SpotifyID: match.ID,
			AlbumID:   match.AlbumID,
			AlbumName: match.AlbumName,
			ImageURL:  match.ImageURL,
		}
		if len(leading) > 0 {
			entry.Skipped = leading
			leading = nil
		}
		enriched = append(enriched, entry)
	}

	if len(leading) > 0 {
		// Nothing matched at all; there is no neighbor to carry the trail.
		e.logger.Warn("no chart entries matched the catalog", "skipped", len(leading))
	}
	return enriched
}
