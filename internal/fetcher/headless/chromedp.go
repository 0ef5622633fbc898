// Package headless contains document fetchers that render pages in a browser.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	"github.com/JakeFAU/hot100-crawler/internal/metrics"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Waiter blocks until a request to rawURL may proceed.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher implements billboard.DocumentFetcher using chromedp and headless Chrome.
type Fetcher struct {
	cfg         Config
	slots       chan struct{}
	waiter      Waiter
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChromedp creates a headless fetcher backed by chromedp. waiter may be nil.
func NewChromedp(cfg Config, waiter Waiter, logger *zap.Logger) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var slots chan struct{}
	if cfg.MaxParallel > 0 {
		slots = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		slots:       slots,
		waiter:      waiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close shuts down the browser allocator.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// FetchDocument renders rawURL and parses the resulting DOM.
// Every failure is returned as a *billboard.FetchError.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if f.waiter != nil {
		if err := f.waiter.Wait(ctx, rawURL); err != nil {
			return nil, &billboard.FetchError{URL: rawURL, Err: err}
		}
	}
	if err := f.acquire(ctx); err != nil {
		return nil, &billboard.FetchError{URL: rawURL, Err: err}
	}
	defer f.release()

	start := time.Now()
	html, status, err := f.render(ctx, rawURL)
	elapsed := time.Since(start)
	metrics.ObserveFetch(rawURL, statusLabel(status, err), len(html), elapsed)
	if err != nil {
		f.logger.Warn("headless fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, &billboard.FetchError{URL: rawURL, Err: err}
	}
	if err := checkRendered(status, html); err != nil {
		return nil, &billboard.FetchError{URL: rawURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &billboard.FetchError{URL: rawURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

func (f *Fetcher) render(ctx context.Context, rawURL string) (string, int, error) {
	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	// Stop the browser tab when the caller gives up.
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.navTimeout())
	defer cancel()

	status := &documentStatus{}
	chromedp.ListenTarget(taskCtx, status.captureEvent)

	var html string
	actions := []chromedp.Action{
		f.networkSetupAction(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, fmt.Errorf("chromedp run canceled: %w", ctxErr)
		}
		return "", 0, fmt.Errorf("chromedp run: %w", err)
	}
	return html, status.get(), nil
}

func (f *Fetcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.slots == nil {
		return nil
	}
	select {
	case f.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.slots == nil {
		return
	}
	select {
	case <-f.slots:
	default:
	}
}

func (f *Fetcher) navTimeout() time.Duration {
	if f.cfg.NavigationTimeout > 0 {
		return f.cfg.NavigationTimeout
	}
	return 45 * time.Second
}

// documentStatus records the HTTP status of the main document response.
type documentStatus struct {
	mu     sync.Mutex
	status int
}

func (d *documentStatus) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	d.mu.Lock()
	d.status = int(resp.Response.Status)
	d.mu.Unlock()
}

func (d *documentStatus) get() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func checkRendered(status int, html string) error {
	if status >= 400 {
		return fmt.Errorf("document status %d", status)
	}
	if strings.TrimSpace(html) == "" {
		return errors.New("empty response body")
	}
	return nil
}

func statusLabel(status int, err error) string {
	switch {
	case err != nil:
		return "error"
	case status == 0:
		return "unknown"
	default:
		return fmt.Sprint(status)
	}
}
