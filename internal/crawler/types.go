package crawler

import (
	"time"

	"github.com/JakeFAU/hot100-crawler/internal/batch"
	"github.com/JakeFAU/hot100-crawler/internal/billboard"
)

// Config controls a crawl run.
type Config struct {
	// Concurrency bounds the number of chart pages fetched at once.
	Concurrency int
	// OnPageError decides whether a failing chart page aborts the run.
	OnPageError batch.Policy
	// Years restricts the crawl to these year labels. Empty means all years.
	Years []string
	// MaxPages caps the number of chart dates visited. Zero means unlimited.
	MaxPages int
	// ArchiveURL is reported when the year filter leaves nothing to crawl.
	ArchiveURL string
}

// PageFailure records a chart page dropped under the skip policy.
type PageFailure struct {
	URL string
	Err error
}

// CrawlResult is the outcome of a completed run.
type CrawlResult struct {
	RunID      string
	Years      []billboard.YearEntry
	ChartDates []string
	Pages      []billboard.ChartPage
	Skipped    []PageFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStatus describes how a run ended.
type RunStatus string

const (
	// RunSucceeded means every visited chart was accepted or skipped by policy.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed means the run stopped on an error.
	RunFailed RunStatus = "failed"
)

// RunSummary is the payload published when a run ends.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Status     RunStatus `json:"status"`
	Years      int       `json:"years"`
	ChartDates int       `json:"chart_dates"`
	Pages      int       `json:"pages"`
	Skipped    []string  `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newRunSummary(res CrawlResult, runErr error) RunSummary {
	summary := RunSummary{
		RunID:      res.RunID,
		Status:     RunSucceeded,
		Years:      len(res.Years),
		ChartDates: len(res.ChartDates),
		Pages:      len(res.Pages),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	for _, failure := range res.Skipped {
		summary.Skipped = append(summary.Skipped, failure.URL)
	}
	if runErr != nil {
		summary.Status = RunFailed
		summary.Error = runErr.Error()
	}
	return summary
}
