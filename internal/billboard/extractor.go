package billboard

import (
	"context"
	"fmt"
)

// Extractor reads chart-date pages into validated ChartPages.
type Extractor struct {
	fetcher DocumentFetcher
}

// NewExtractor constructs an Extractor backed by fetcher.
func NewExtractor(fetcher DocumentFetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// GetTop100 fetches one chart page and extracts its 100 entries.
// Any invalid row or a count other than ChartSize fails the whole page.
func (e *Extractor) GetTop100(ctx context.Context, chartURL string) (ChartPage, error) {
	doc, err := e.fetcher.FetchDocument(ctx, chartURL)
	if err != nil {
		return ChartPage{}, fmt.Errorf("get top 100: %w", err)
	}
	page, err := ParseChart(doc, chartURL)
	if err != nil {
		return ChartPage{}, fmt.Errorf("get top 100: %w", err)
	}
	return page, nil
}
