package billboard

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// ChartSize is the number of entries every Hot 100 chart page must yield.
const ChartSize = 100

// YearEntry is one selectable year on the archive root page.
type YearEntry struct {
	Year       string `json:"year"`
	ArchiveURI string `json:"archive_uri"`
}

// ChartEntry is a single ranked song on a chart page.
type ChartEntry struct {
	Rank   string `json:"rank"`
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// ChartPage is the validated content of one chart-date page.
// Entries always holds exactly ChartSize items, rank 1 first.
type ChartPage struct {
	URL     string       `json:"url"`
	Date    string       `json:"date"`
	Entries []ChartEntry `json:"entries"`
}

// DocumentFetcher retrieves a URL and exposes the body as a queryable document.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error)
}
