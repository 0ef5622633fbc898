// Package app initializes and holds long-lived application services.
package app

import (
	"context"
	"errors"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	"github.com/JakeFAU/hot100-crawler/internal/config"
	"github.com/JakeFAU/hot100-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/hot100-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/hot100-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/hot100-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/hot100-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/hot100-crawler/internal/storage/gcs"
	"github.com/JakeFAU/hot100-crawler/internal/storage/local"
	"github.com/JakeFAU/hot100-crawler/internal/storage/postgres"
)

// App holds the shared services for one CLI invocation. Sinks and the
// notifier are opened lazily by Engine so inspection commands never touch
// external storage.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	navigator *billboard.Navigator
	extractor *billboard.Extractor
	closers   []func() error
}

// New wires the fetcher, navigator, and extractor described by cfg.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	fetcher, err := a.newFetcher()
	if err != nil {
		return nil, err
	}
	a.navigator = billboard.NewNavigator(fetcher, cfg.BaseURL(), cfg.Crawler.Concurrency, logger)
	a.extractor = billboard.NewExtractor(fetcher)
	return a, nil
}

func (a *App) newFetcher() (billboard.DocumentFetcher, error) {
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: a.cfg.Crawler.RateLimitPerHost,
		Burst:             a.cfg.Crawler.RateLimitBurst,
	})

	if a.cfg.Headless.Enabled {
		f, err := headless.NewChromedp(headless.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.Crawler.UserAgent,
			NavigationTimeout: a.cfg.Headless.NavTimeout,
		}, limiter, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.closers = append(a.closers, func() error {
			f.Close()
			return nil
		})
		a.logger.Info("using headless fetcher", zap.Int("max_parallel", a.cfg.Headless.MaxParallel))
		return f, nil
	}

	f, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Crawler.UserAgent,
		RespectRobots: a.cfg.Crawler.RespectRobots,
		Timeout:       a.cfg.Crawler.RequestTimeout,
		MaxBodyBytes:  a.cfg.Crawler.MaxBodyBytes,
		Parallelism:   a.cfg.Crawler.Concurrency,
	}, limiter, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init colly fetcher: %w", err)
	}
	return f, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Navigator returns the archive navigator.
func (a *App) Navigator() *billboard.Navigator {
	return a.navigator
}

// Extractor returns the chart extractor.
func (a *App) Extractor() *billboard.Extractor {
	return a.extractor
}

// Engine opens the configured sinks and notifier and returns a crawl engine.
func (a *App) Engine(ctx context.Context) (*crawler.Engine, error) {
	sinks, err := a.openSinks(ctx)
	if err != nil {
		return nil, err
	}
	opts := []crawler.Option{crawler.WithSinks(sinks...), crawler.WithLogger(a.logger)}

	if a.cfg.PubSub.Topic != "" {
		pub, err := pubsub.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, crawler.WithNotifier(pub))
	}

	engine, err := crawler.NewEngine(crawler.Config{
		Concurrency: a.cfg.Crawler.Concurrency,
		OnPageError: a.cfg.PagePolicy(),
		Years:       a.cfg.Crawler.Years,
		MaxPages:    a.cfg.Crawler.MaxPages,
		ArchiveURL:  billboard.ArchiveRootURL(a.cfg.BaseURL()),
	}, a.navigator, a.extractor, opts...)
	if err != nil {
		return nil, fmt.Errorf("init crawl engine: %w", err)
	}
	return engine, nil
}

func (a *App) openSinks(ctx context.Context) ([]crawler.Sink, error) {
	var sinks []crawler.Sink

	if dir := a.cfg.Storage.LocalDir; dir != "" {
		store, err := local.New(local.Config{BaseDir: dir})
		if err != nil {
			return nil, fmt.Errorf("init local sink: %w", err)
		}
		sinks = append(sinks, store)
	}

	if bucket := a.cfg.Storage.GCSBucket; bucket != "" {
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: bucket, Prefix: a.cfg.Storage.GCSPrefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs sink: %w", err)
		}
		sinks = append(sinks, store)
	}

	if dsn := a.cfg.DB.DSN; dsn != "" {
		store, err := postgres.NewChartStore(ctx, postgres.ChartStoreConfig{
			DSN:      dsn,
			Table:    a.cfg.DB.Table,
			MaxConns: a.cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		sinks = append(sinks, store)
	}

	for _, s := range sinks {
		a.logger.Info("chart sink enabled", zap.String("sink", s.Name()))
	}
	return sinks, nil
}

// OnClose registers fn to run when the App is closed.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases every service opened by the App, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}
