// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/hot100-crawler/internal/batch"
	"github.com/JakeFAU/hot100-crawler/internal/billboard"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Billboard BillboardConfig `mapstructure:"billboard"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BillboardConfig points the crawler at the site origin.
type BillboardConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// CrawlerConfig governs fetching and the crawl pipeline.
type CrawlerConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	UserAgent        string        `mapstructure:"user_agent"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RateLimitPerHost float64       `mapstructure:"rate_limit_per_host"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst"`
	RespectRobots    bool          `mapstructure:"respect_robots"`
	MaxBodyBytes     int           `mapstructure:"max_body_bytes"`
	OnPageError      string        `mapstructure:"on_page_error"`
	Years            []string      `mapstructure:"years"`
	MaxPages         int           `mapstructure:"max_pages"`
}

// HeadlessConfig switches page fetching to headless Chrome.
type HeadlessConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxParallel int           `mapstructure:"max_parallel"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
}

// StorageConfig selects the blob sinks. Empty values disable a sink.
type StorageConfig struct {
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// DBConfig controls the Postgres chart sink.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds the run summary topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig controls the ops HTTP listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOT100")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("billboard.base_url", billboard.DefaultBaseURL)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "hot100-crawler/0.1")
	v.SetDefault("crawler.request_timeout", "20s")
	v.SetDefault("crawler.rate_limit_per_host", 2.0)
	v.SetDefault("crawler.rate_limit_burst", 1)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.max_body_bytes", 10*1024*1024)
	v.SetDefault("crawler.on_page_error", string(batch.PolicyAbort))
	v.SetDefault("crawler.years", []string{})
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout", "45s")
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_prefix", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "chart_entries")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := billboard.ParseBase(c.Billboard.BaseURL); err != nil {
		return fmt.Errorf("billboard.base_url must be an absolute URL: %w", err)
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.RateLimitPerHost < 0 {
		return fmt.Errorf("crawler.rate_limit_per_host must be >= 0")
	}
	if c.Crawler.RateLimitBurst < 0 {
		return fmt.Errorf("crawler.rate_limit_burst must be >= 0")
	}
	if c.Crawler.MaxBodyBytes < 0 {
		return fmt.Errorf("crawler.max_body_bytes must be >= 0")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	if _, err := batch.ParsePolicy(c.Crawler.OnPageError); err != nil {
		return fmt.Errorf("crawler.on_page_error must be abort or skip: %w", err)
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Headless.NavTimeout < 0 {
		return fmt.Errorf("headless.nav_timeout must be >= 0")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set together")
	}
	if c.Storage.GCSPrefix != "" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.gcs_prefix is set")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level must be a zap level: %w", err)
	}
	return nil
}

// BaseURL returns the parsed site origin. Validate guarantees it parses.
func (c Config) BaseURL() *url.URL {
	u, err := billboard.ParseBase(c.Billboard.BaseURL)
	if err != nil {
		return &url.URL{Scheme: "https", Host: "www.billboard.com"}
	}
	return u
}

// PagePolicy returns the configured chart failure policy.
func (c Config) PagePolicy() batch.Policy {
	p, err := batch.ParsePolicy(c.Crawler.OnPageError)
	if err != nil {
		return batch.PolicyAbort
	}
	return p
}
