package charts

import (
	"context"
	"sync"
	"time"
)

// CacheTTL is the duration after which cached chart entries are considered
// stale and re-fetched lazily on the next request.
const CacheTTL = time.Hour

// Cache serves paginated, catalog-enriched chart entries, re-ingesting the
// chart at most once per TTL. Because the fetch tier never fails, neither
// does the cache.
type Cache struct {
	mu        sync.Mutex
	fetcher   *Fetcher
	enricher  *Enricher
	ttl       time.Duration
	now       func() time.Time
	entries   []EnrichedTrack
	fetchedAt time.Time
}

// NewCache creates a chart cache over the given fetcher and enricher.
func NewCache(fetcher *Fetcher, enricher *Enricher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = CacheTTL
	}
	return &Cache{
		fetcher:  fetcher,
		enricher: enricher,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Page returns one page of enriched chart entries, refreshing the cache when
// stale. Out-of-range offsets yield an empty page, not an error.
func (c *Cache) Page(ctx context.Context, limit, offset int) []EnrichedTrack {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil || c.now().Sub(c.fetchedAt) > c.ttl {
		tracks := c.fetcher.TopTracks(ctx, ChartSize)
		c.entries = c.enricher.Enrich(ctx, tracks)
		c.fetchedAt = c.now()
	}

	if limit <= 0 || limit > len(c.entries) {
		limit = len(c.entries)
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(c.entries) {
		return []EnrichedTrack{}
	}
	end := offset + limit
	if end > len(c.entries) {
		end = len(c.entries)
	}

	page := make([]EnrichedTrack, end-offset)
	copy(page, c.entries[offset:end])
	return page
}
