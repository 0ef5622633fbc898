package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/api"
	"github.com/JakeFAU/hot100-crawler/internal/crawler"
)

type crawlReport struct {
	RunID      string         `json:"run_id"`
	Years      int            `json:"years"`
	ChartDates int            `json:"chart_dates"`
	Pages      int            `json:"pages"`
	Skipped    []skippedChart `json:"skipped,omitempty"`
	Elapsed    string         `json:"elapsed"`
}

type skippedChart struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// newCrawlCmd creates the 'crawl' subcommand, which runs a full archive crawl
// and hands every chart to the configured sinks.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawls every configured chart and stores the results",
		Args:  cobra.NoArgs,
		RunE:  runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	engine, err := appInstance.Engine(cmd.Context())
	if err != nil {
		return err
	}

	if addr := appInstance.Config().Metrics.Addr; addr != "" {
		opsCtx, stopOps := context.WithCancel(cmd.Context())
		opsDone := make(chan struct{})
		go func() {
			defer close(opsDone)
			if err := api.NewServer(logger).ListenAndServe(opsCtx, addr); err != nil {
				logger.Warn("ops server stopped", zap.Error(err))
			}
		}()
		defer func() {
			stopOps()
			<-opsDone
		}()
	}

	res, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), newCrawlReport(res))
}

func newCrawlReport(res crawler.CrawlResult) crawlReport {
	report := crawlReport{
		RunID:      res.RunID,
		Years:      len(res.Years),
		ChartDates: len(res.ChartDates),
		Pages:      len(res.Pages),
		Elapsed:    res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String(),
	}
	for _, s := range res.Skipped {
		report.Skipped = append(report.Skipped, skippedChart{URL: s.URL, Error: s.Err.Error()})
	}
	return report
}
