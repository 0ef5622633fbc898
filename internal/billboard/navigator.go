package billboard

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/batch"
)

// Navigator walks the two archive index levels: years, then chart dates.
type Navigator struct {
	fetcher     DocumentFetcher
	base        *url.URL
	concurrency int
	logger      *zap.Logger
}

// NewNavigator constructs a Navigator. concurrency bounds the number of
// per-year listings fetched at once.
func NewNavigator(fetcher DocumentFetcher, base *url.URL, concurrency int, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		fetcher:     fetcher,
		base:        base,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ListYears fetches the archive root and returns its years in document order.
// A root without year items yields an *EmptyResultError.
func (n *Navigator) ListYears(ctx context.Context) ([]YearEntry, error) {
	rootURL := ArchiveRootURL(n.base)
	doc, err := n.fetcher.FetchDocument(ctx, rootURL)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	years, err := ParseYears(doc, n.base, rootURL)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	n.logger.Debug("archive years listed", zap.String("url", rootURL), zap.Int("years", len(years)))
	return years, nil
}

// ListChartDates fetches the Hot 100 listing of every year and returns the
// chart URLs flattened in input order, document order within a year.
// The first failing year aborts the whole call.
func (n *Navigator) ListChartDates(ctx context.Context, years []YearEntry) ([]string, error) {
	opts := batch.Options{Limit: n.concurrency, Policy: batch.PolicyAbort}
	results, err := batch.Map(ctx, years, opts, n.chartDatesForYear)
	if err != nil {
		return nil, fmt.Errorf("list chart dates: %w", err)
	}
	var dates []string
	for _, res := range results {
		dates = append(dates, res.Value...)
	}
	return dates, nil
}

func (n *Navigator) chartDatesForYear(ctx context.Context, year YearEntry) ([]string, error) {
	listingURL := HotListingURL(year.ArchiveURI)
	doc, err := n.fetcher.FetchDocument(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("year %s: %w", year.Year, err)
	}
	dates, err := ParseChartDates(doc, n.base, listingURL)
	if err != nil {
		return nil, fmt.Errorf("year %s: %w", year.Year, err)
	}
	n.logger.Debug("chart dates listed",
		zap.String("year", year.Year),
		zap.String("url", listingURL),
		zap.Int("dates", len(dates)),
	)
	return dates, nil
}
