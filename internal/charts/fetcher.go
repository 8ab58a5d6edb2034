// Package charts ingests third-party popularity charts and enriches them
// with catalog metadata. Fetching is deliberately availability-over-accuracy:
// a structured feed is tried first, then a scrape of the chart page, and
// finally a built-in sample list, so callers always have something to render
// and never see a hard failure.
package charts

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

const (
	defaultFeedURL = "https://www.billboard.com/feed/"
	defaultPageURL = "https://www.billboard.com/charts/hot-100/"
	userAgent      = "recordcrate/1.0"

	// ChartSize is how many entries one chart fetch aims for.
	ChartSize = 100
)

// ChartTrack is one normalized chart entry.
type ChartTrack struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Fetcher retrieves the current top-tracks chart.
type Fetcher struct {
	http    *resty.Client
	feedURL string
	pageURL string
	logger  *log.Logger
}

// NewFetcher creates a Fetcher against the default chart sources.
func NewFetcher(logger *log.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetHeader("User-Agent", userAgent)
	return &Fetcher{
		http:    client,
		feedURL: defaultFeedURL,
		pageURL: defaultPageURL,
		logger:  logger,
	}
}

// TopTracks returns up to limit chart entries. It degrades through the
// fallback chain instead of returning an error.
func (f *Fetcher) TopTracks(ctx context.Context, limit int) []ChartTrack {
	tracks, err := f.fromFeed(ctx)
	if err != nil {
		f.logger.Warn("chart feed unavailable, scraping chart page", "err", err)
		tracks, err = f.fromPage(ctx)
	}
	if err != nil {
		f.logger.Warn("chart page scrape failed, serving sample chart", "err", err)
		tracks = sampleTopTracks()
	}

	if limit > 0 && limit < len(tracks) {
		tracks = tracks[:limit]
	}
	return tracks
}

// feed is the subset of the chart RSS document we care about. Item titles
// carry "Song Title - Artist Name".
type feed struct {
	Items []struct {
		Title string `xml:"title"`
	} `xml:"channel>item"`
}

// fromFeed parses the structured RSS feed.
func (f *Fetcher) fromFeed(ctx context.Context) ([]ChartTrack, error) {
	resp, err := f.http.R().SetContext(ctx).Get(f.feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching chart feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chart feed returned %s", resp.Status())
	}

	var doc feed
	if err := xml.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("parsing chart feed: %w", err)
	}

	var tracks []ChartTrack
	for _, item := range doc.Items {
		title, artist, ok := splitFeedTitle(item.Title)
		if !ok {
			continue
		}
		tracks = append(tracks, ChartTrack{
			Rank:   len(tracks) + 1,
			Title:  title,
			Artist: artist,
		})
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("chart feed contained no parseable items")
	}
	return tracks, nil
}

// fromPage scrapes the chart page markup directly.
func (f *Fetcher) fromPage(ctx context.Context) ([]ChartTrack, error) {
	resp, err := f.http.R().SetContext(ctx).Get(f.pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching chart page: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chart page returned %s", resp.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body())))
	if err != nil {
		return nil, fmt.Errorf("parsing chart page: %w", err)
	}

	var tracks []ChartTrack
	doc.Find("div.o-chart-results-list-row-container").Each(func(_ int, row *goquery.Selection) {
		heading := row.Find("h3#title-of-a-story").First()
		title := strings.TrimSpace(heading.Text())
		artist := strings.TrimSpace(heading.Next().Text())
		if title == "" || artist == "" {
			return
		}
		tracks = append(tracks, ChartTrack{
			Rank:   len(tracks) + 1,
			Title:  title,
			Artist: artist,
		})
	})
	if len(tracks) == 0 {
		return nil, fmt.Errorf("chart page markup yielded no entries")
	}
	return tracks, nil
}

// splitFeedTitle splits "Song Title - Artist Name" on the last separator so
// hyphenated song titles stay intact.
func splitFeedTitle(s string) (title, artist string, ok bool) {
	idx := strings.LastIndex(s, " - ")
	if idx < 0 {
		return "", "", false
	}
	title = strings.TrimSpace(s[:idx])
	artist = strings.TrimSpace(s[idx+3:])
	return title, artist, title != "" && artist != ""
}
