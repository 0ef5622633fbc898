package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/batch"
	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	"github.com/JakeFAU/hot100-crawler/internal/id/uuid"
	"github.com/JakeFAU/hot100-crawler/internal/metrics"
)

// Engine runs the archive crawl: years, then chart dates, then charts.
type Engine struct {
	cfg       Config
	navigator Navigator
	extractor Extractor
	sinks     []Sink
	notifier  Notifier
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSinks registers the sinks that receive accepted chart pages.
func WithSinks(sinks ...Sink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithNotifier sets the run summary notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator overrides the run ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine wires an Engine. It uses the system clock and UUIDv7 run IDs
// unless overridden.
func NewEngine(cfg Config, navigator Navigator, extractor Extractor, opts ...Option) (*Engine, error) {
	if navigator == nil {
		return nil, errors.New("navigator is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if cfg.OnPageError == "" {
		cfg.OnPageError = batch.PolicyAbort
	}
	if cfg.MaxPages < 0 {
		return nil, fmt.Errorf("max pages must be >= 0")
	}
	e := &Engine{
		cfg:       cfg,
		navigator: navigator,
		extractor: extractor,
		clock:     utcClock{},
		ids:       uuid.NewUUIDGenerator(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run performs one full crawl. Listing failures are always fatal; chart
// failures follow Config.OnPageError. The returned CrawlResult is populated
// as far as the run got, even when an error is returned.
func (e *Engine) Run(ctx context.Context) (CrawlResult, error) {
	res := CrawlResult{StartedAt: e.clock.Now()}
	runID, err := e.ids.NewID()
	if err != nil {
		return res, fmt.Errorf("generate run id: %w", err)
	}
	res.RunID = runID
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("crawl started",
		zap.Int("concurrency", e.cfg.Concurrency),
		zap.String("on_page_error", string(e.cfg.OnPageError)),
	)

	err = e.run(ctx, logger, &res)
	res.FinishedAt = e.clock.Now()
	if err != nil {
		logger.Error("crawl failed", zap.Error(err))
	} else {
		logger.Info("crawl finished",
			zap.Int("pages", len(res.Pages)),
			zap.Int("skipped", len(res.Skipped)),
			zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
		)
	}
	e.notify(ctx, logger, res, err)
	return res, err
}

func (e *Engine) run(ctx context.Context, logger *zap.Logger, res *CrawlResult) error {
	years, err := e.navigator.ListYears(ctx)
	if err != nil {
		return fmt.Errorf("crawl archive: %w", err)
	}
	years, err = e.filterYears(years)
	if err != nil {
		return fmt.Errorf("crawl archive: %w", err)
	}
	res.Years = years

	dates, err := e.navigator.ListChartDates(ctx, years)
	if err != nil {
		return fmt.Errorf("crawl archive: %w", err)
	}
	if e.cfg.MaxPages > 0 && len(dates) > e.cfg.MaxPages {
		dates = dates[:e.cfg.MaxPages]
	}
	res.ChartDates = dates
	logger.Info("chart dates collected", zap.Int("years", len(years)), zap.Int("dates", len(dates)))

	opts := batch.Options{Limit: e.cfg.Concurrency, Policy: e.cfg.OnPageError}
	results, err := batch.Map(ctx, dates, opts, e.processChart)
	if err != nil {
		// Charts saved before the abort still count toward the run.
		for _, r := range results {
			if r.Done && r.Err == nil {
				res.Pages = append(res.Pages, r.Value)
			}
		}
		return fmt.Errorf("crawl charts: %w", err)
	}
	for i, r := range results {
		if r.Err != nil {
			metrics.ObserveChart(metrics.OutcomeSkipped)
			logger.Warn("chart skipped", zap.String("url", dates[i]), zap.Error(r.Err))
			res.Skipped = append(res.Skipped, PageFailure{URL: dates[i], Err: r.Err})
			continue
		}
		res.Pages = append(res.Pages, r.Value)
	}
	return nil
}

// processChart extracts one chart and hands it to every sink.
func (e *Engine) processChart(ctx context.Context, chartURL string) (billboard.ChartPage, error) {
	page, err := e.extractor.GetTop100(ctx, chartURL)
	if err != nil {
		e.observeFailure(ctx)
		return billboard.ChartPage{}, err
	}
	for _, sink := range e.sinks {
		if err := sink.SaveChart(ctx, page); err != nil {
			e.observeFailure(ctx)
			return billboard.ChartPage{}, fmt.Errorf("save chart %s to %s: %w", chartURL, sink.Name(), err)
		}
	}
	metrics.ObserveChart(metrics.OutcomeSaved)
	return page, nil
}

// observeFailure counts hard failures. Skipped charts are counted once the
// batch completes so that each chart has exactly one outcome.
func (e *Engine) observeFailure(ctx context.Context) {
	if e.cfg.OnPageError == batch.PolicyAbort && ctx.Err() == nil {
		metrics.ObserveChart(metrics.OutcomeFailed)
	}
}

func (e *Engine) filterYears(years []billboard.YearEntry) ([]billboard.YearEntry, error) {
	if len(e.cfg.Years) == 0 {
		return years, nil
	}
	kept := make([]billboard.YearEntry, 0, len(e.cfg.Years))
	for _, y := range years {
		if slices.Contains(e.cfg.Years, y.Year) {
			kept = append(kept, y)
		}
	}
	if len(kept) == 0 {
		return nil, &billboard.EmptyResultError{URL: e.cfg.ArchiveURL, What: "years matching filter"}
	}
	return kept, nil
}

func (e *Engine) notify(ctx context.Context, logger *zap.Logger, res CrawlResult, runErr error) {
	if e.notifier == nil {
		return
	}
	// The run context may already be canceled; the summary still goes out.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	id, err := e.notifier.PublishRunSummary(pubCtx, newRunSummary(res, runErr))
	if err != nil {
		logger.Warn("publish run summary failed", zap.Error(err))
		return
	}
	logger.Debug("run summary published", zap.String("message_id", id))
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}
