package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Named limits of the briefing pipeline. These are the defaults for the
// corresponding Config fields and the values tests assert against.
const (
	DefaultMaxItemsPerFeed   = 3
	DefaultMaxDescriptionLen = 200
	DefaultQuoteTimeout      = 10 * time.Second
	DefaultFeedTimeout       = 15 * time.Second
)

// DefaultUserAgent identifies the client as a regular browser; some feed
// hosts reject requests without one
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds the briefing configuration
type Config struct {
	Feeds   []Feed  `yaml:"feeds" json:"feeds" jsonschema:"description=RSS feeds rendered as briefing sections in order"`
	Indices []Index `yaml:"indices" json:"indices" jsonschema:"description=Market indices for the quote table in order"`

	Limits struct {
		MaxItemsPerFeed   int `yaml:"max_items_per_feed" json:"max_items_per_feed" jsonschema:"default=3,description=Maximum news items kept per feed"`
		MaxDescriptionLen int `yaml:"max_description_len" json:"max_description_len" jsonschema:"default=200,description=Maximum description length in characters before truncation"`
	} `yaml:"limits" json:"limits" jsonschema:"description=Item limits"`

	Timeouts struct {
		Quote time.Duration `yaml:"quote" json:"quote" jsonschema:"default=10s,description=Per-request timeout for index quotes"`
		Feed  time.Duration `yaml:"feed" json:"feed" jsonschema:"default=15s,description=Per-request timeout for feed fetches"`
	} `yaml:"timeouts" json:"timeouts" jsonschema:"description=Network timeouts"`

	UserAgent string `yaml:"user_agent" json:"user_agent" jsonschema:"description=User-Agent header for outgoing requests"`
}

// Feed is a single configured RSS feed
type Feed struct {
	Name string `yaml:"name" json:"name" jsonschema:"required,description=Section header shown in the briefing"`
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Feed endpoint URL"`
}

// Index is a single configured market index
type Index struct {
	Name   string `yaml:"name" json:"name" jsonschema:"required,description=Display label for the quote table"`
	Symbol string `yaml:"symbol" json:"symbol" jsonschema:"required,description=Chart API symbol"`
}

// Default returns the built-in configuration: Yonhap economy feeds and the
// KOSPI/KOSDAQ/NASDAQ indices
func Default() *Config {
	cfg := &Config{
		Feeds: []Feed{
			{Name: "연합뉴스 경제", URL: "https://www.yna.co.kr/rss/economy.xml"},
			{Name: "연합뉴스 마켓+ (증시)", URL: "https://www.yna.co.kr/rss/market.xml"},
			{Name: "연합뉴스 산업", URL: "https://www.yna.co.kr/rss/industry.xml"},
		},
		Indices: []Index{
			{Name: "KOSPI", Symbol: "^KS11"},
			{Name: "KOSDAQ", Symbol: "^KQ11"},
			{Name: "NASDAQ", Symbol: "^IXIC"},
		},
	}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file, fills defaults and validates
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills unset fields. An empty feed or index list falls back to
// the built-in Korean briefing sources.
func setDefaults(cfg *Config) {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = Default().Feeds
	}
	if len(cfg.Indices) == 0 {
		cfg.Indices = Default().Indices
	}
	if cfg.Limits.MaxItemsPerFeed == 0 {
		cfg.Limits.MaxItemsPerFeed = DefaultMaxItemsPerFeed
	}
	if cfg.Limits.MaxDescriptionLen == 0 {
		cfg.Limits.MaxDescriptionLen = DefaultMaxDescriptionLen
	}
	if cfg.Timeouts.Quote == 0 {
		cfg.Timeouts.Quote = DefaultQuoteTimeout
	}
	if cfg.Timeouts.Feed == 0 {
		cfg.Timeouts.Feed = DefaultFeedTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	for i, f := range cfg.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feeds[%d].name is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feeds[%d].url is required", i)
		}
	}
	for i, idx := range cfg.Indices {
		if idx.Name == "" {
			return fmt.Errorf("indices[%d].name is required", i)
		}
		if idx.Symbol == "" {
			return fmt.Errorf("indices[%d].symbol is required", i)
		}
	}
	if cfg.Limits.MaxItemsPerFeed < 1 {
		return fmt.Errorf("limits.max_items_per_feed must be at least 1")
	}
	if cfg.Limits.MaxDescriptionLen < 4 {
		return fmt.Errorf("limits.max_description_len must be at least 4")
	}
	if cfg.Timeouts.Quote < time.Second {
		return fmt.Errorf("timeouts.quote must be at least 1 second")
	}
	if cfg.Timeouts.Feed < time.Second {
		return fmt.Errorf("timeouts.feed must be at least 1 second")
	}
	return nil
}
