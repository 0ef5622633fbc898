// Package collyfetcher implements billboard.DocumentFetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
	"github.com/JakeFAU/hot100-crawler/internal/metrics"
)

// errEmptyBody is reported when a response carries no markup.
var errEmptyBody = errors.New("empty response body")

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodyBytes  int
	Parallelism   int
}

// Waiter blocks until a request to rawURL may proceed.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher issues one GET per call through a cloned Colly collector.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type fetchResult struct {
	finalURL string
	status   int
	body     []byte
	err      error
}

// New builds a Fetcher. limiter may be nil to disable request spacing.
func New(cfg Config, limiter Waiter, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport(cfg.Parallelism))
	c.SetRequestTimeout(cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: cfg.Parallelism}); err != nil {
		return nil, fmt.Errorf("set collector limits: %w", err)
	}

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// FetchDocument retrieves rawURL and parses the body into a goquery document.
// Every failure is returned as a *billboard.FetchError.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &billboard.FetchError{URL: rawURL, Err: err}
		}
	}

	start := time.Now()
	res := f.fetch(ctx, rawURL)
	elapsed := time.Since(start)
	metrics.ObserveFetch(rawURL, statusLabel(res), len(res.body), elapsed)

	if res.err != nil {
		f.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status_code", res.status),
			zap.Duration("elapsed", elapsed),
			zap.Error(res.err),
		)
		return nil, &billboard.FetchError{URL: rawURL, Err: res.err}
	}
	if len(bytes.TrimSpace(res.body)) == 0 {
		return nil, &billboard.FetchError{URL: rawURL, Err: errEmptyBody}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
	if err != nil {
		return nil, &billboard.FetchError{URL: rawURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	f.logger.Debug("fetched document",
		zap.String("url", rawURL),
		zap.String("final_url", res.finalURL),
		zap.Int("bytes", len(res.body)),
		zap.Duration("elapsed", elapsed),
	)
	return doc, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) fetchResult {
	collector := f.baseCollector.Clone()
	collector.Context = ctx

	var res fetchResult
	configureCollectorHooks(collector, &res)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fetchResult{err: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if res.err != nil {
			return res
		}
		if err != nil {
			res.err = fmt.Errorf("colly visit failed: %w", err)
		}
		return res
	}
}

func configureCollectorHooks(hooks collectorHooks, res *fetchResult) {
	hooks.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.finalURL = r.Request.URL.String()
		res.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil {
			res.status = r.StatusCode
		}
		res.err = err
	})
}

func statusLabel(res fetchResult) string {
	if res.status > 0 {
		return strconv.Itoa(res.status)
	}
	if res.err != nil {
		return "error"
	}
	return "unknown"
}

func newHTTPTransport(parallelism int) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxConnsPerHost:       parallelism * 2,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
