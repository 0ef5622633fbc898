package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
)

// Navigator enumerates archive years and chart dates.
type Navigator interface {
	ListYears(ctx context.Context) ([]billboard.YearEntry, error)
	ListChartDates(ctx context.Context, years []billboard.YearEntry) ([]string, error)
}

// Extractor turns a chart URL into a validated ChartPage.
type Extractor interface {
	GetTop100(ctx context.Context, rawURL string) (billboard.ChartPage, error)
}

// Sink persists accepted chart pages.
type Sink interface {
	Name() string
	SaveChart(ctx context.Context, page billboard.ChartPage) error
}

// Notifier announces finished runs (Pub/Sub or similar).
type Notifier interface {
	PublishRunSummary(ctx context.Context, summary RunSummary) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
