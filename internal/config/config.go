package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
)

// Config holds everything the pipeline reads at startup. File values come
// from configs/config.yaml, credentials and toggles from the environment.
type Config struct {
	// Keyword filtering
	KeywordsAllow []string
	KeywordsDeny  []string

	// Feed ingestion
	HTTPTimeout       time.Duration
	MaxEntriesPerFeed int

	// Dedupe state
	StateFilePath      string
	StateRetentionDays int
	DatabaseURL        string // optional Postgres dedupe backend

	// Delivery
	WebhookURL       string
	MaxRetries       int
	RetryBackoffBase int
	MessageBatchSize int
	MessageDelay     time.Duration
	MessageByteLimit int
	MaxDailyItems    int
	SummaryMaxLength int

	// Tag filtering
	TagsFilterEnabled bool
	TagsInclude       []string
	TagsExclude       []string

	// Smart summary (LLM enrichment)
	SmartSummaryEnabled bool
	ScoreThreshold      float64
	MaxContentLength    int
	EnrichDelay         time.Duration
	MaxSummaryRequests  int
	GeminiAPIKey        string

	// Runtime toggles
	DryRun bool
}

type fileConfig struct {
	Keywords struct {
		Allow []string `yaml:"allow"`
		Deny  []string `yaml:"deny"`
	} `yaml:"keywords"`
	Settings struct {
		HTTPTimeoutSeconds  int     `yaml:"http_timeout_seconds"`
		MaxEntriesPerFeed   int     `yaml:"max_entries_per_feed"`
		StateRetentionDays  int     `yaml:"state_retention_days"`
		MaxRetries          int     `yaml:"max_retries"`
		RetryBackoffBase    int     `yaml:"retry_backoff_base"`
		MessageBatchSize    int     `yaml:"message_batch_size"`
		MessageDelaySeconds float64 `yaml:"message_delay_seconds"`
		MessageByteLimit    int     `yaml:"message_byte_limit"`
		MaxDailyItems       int     `yaml:"max_daily_items"`
		SummaryMaxLength    int     `yaml:"summary_max_length"`
	} `yaml:"settings"`
	TagsFilter struct {
		Enabled     bool     `yaml:"enabled"`
		IncludeTags []string `yaml:"include_tags"`
		ExcludeTags []string `yaml:"exclude_tags"`
	} `yaml:"tags_filter"`
	SmartSummary struct {
		Enabled             bool    `yaml:"enabled"`
		ScoreThreshold      float64 `yaml:"score_threshold"`
		MaxContentLength    int     `yaml:"max_content_length"`
		RequestDelaySeconds float64 `yaml:"request_delay_seconds"`
		MaxRequests         int     `yaml:"max_requests"`
	} `yaml:"smart_summary"`
}

// Load reads the YAML config when present and applies environment overrides.
// A missing or corrupt file is not fatal: defaults are used and the problem
// is logged.
func Load(path string) *Config {
	cfg := &Config{
		HTTPTimeout:        30 * time.Second,
		MaxEntriesPerFeed:  50,
		StateFilePath:      "state.json",
		StateRetentionDays: 30,
		MaxRetries:         3,
		RetryBackoffBase:   2,
		MessageBatchSize:   5,
		MessageDelay:       time.Second,
		MessageByteLimit:   4000,
		MaxDailyItems:      20,
		SummaryMaxLength:   200,
		ScoreThreshold:     60,
		MaxContentLength:   6000,
		EnrichDelay:        2 * time.Second,
		MaxSummaryRequests: 10,
	}

	if data, err := os.ReadFile(path); err != nil {
		logger.Warn("config file not loaded, using defaults", "path", path, "error", err)
	} else {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			logger.Warn("config file is malformed, using defaults", "path", path, "error", err)
		} else {
			cfg.applyFile(&fc)
		}
	}

	cfg.applyEnv()
	logger.Info("config loaded",
		"allow_keywords", len(cfg.KeywordsAllow),
		"deny_keywords", len(cfg.KeywordsDeny),
		"smart_summary", cfg.SmartSummaryEnabled,
		"dry_run", cfg.DryRun)
	return cfg
}

func (c *Config) applyFile(fc *fileConfig) {
	c.KeywordsAllow = fc.Keywords.Allow
	c.KeywordsDeny = fc.Keywords.Deny

	s := fc.Settings
	if s.HTTPTimeoutSeconds > 0 {
		c.HTTPTimeout = time.Duration(s.HTTPTimeoutSeconds) * time.Second
	}
	if s.MaxEntriesPerFeed > 0 {
		c.MaxEntriesPerFeed = s.MaxEntriesPerFeed
	}
	if s.StateRetentionDays > 0 {
		c.StateRetentionDays = s.StateRetentionDays
	}
	if s.MaxRetries > 0 {
		c.MaxRetries = s.MaxRetries
	}
	if s.RetryBackoffBase > 0 {
		c.RetryBackoffBase = s.RetryBackoffBase
	}
	if s.MessageBatchSize > 0 {
		c.MessageBatchSize = s.MessageBatchSize
	}
	if s.MessageDelaySeconds > 0 {
		c.MessageDelay = time.Duration(s.MessageDelaySeconds * float64(time.Second))
	}
	if s.MessageByteLimit > 0 {
		c.MessageByteLimit = s.MessageByteLimit
	}
	if s.MaxDailyItems > 0 {
		c.MaxDailyItems = s.MaxDailyItems
	}
	if s.SummaryMaxLength > 0 {
		c.SummaryMaxLength = s.SummaryMaxLength
	}

	c.TagsFilterEnabled = fc.TagsFilter.Enabled
	c.TagsInclude = fc.TagsFilter.IncludeTags
	c.TagsExclude = fc.TagsFilter.ExcludeTags

	ss := fc.SmartSummary
	c.SmartSummaryEnabled = ss.Enabled
	if ss.ScoreThreshold > 0 {
		c.ScoreThreshold = ss.ScoreThreshold
	}
	if ss.MaxContentLength > 0 {
		c.MaxContentLength = ss.MaxContentLength
	}
	if ss.RequestDelaySeconds > 0 {
		c.EnrichDelay = time.Duration(ss.RequestDelaySeconds * float64(time.Second))
	}
	if ss.MaxRequests > 0 {
		c.MaxSummaryRequests = ss.MaxRequests
	}
}

func (c *Config) applyEnv() {
	c.WebhookURL = os.Getenv("WECOM_WEBHOOK_URL")
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.DatabaseURL = os.Getenv("DEDUPE_DATABASE_URL")

	if v := os.Getenv("STATE_FILE_PATH"); v != "" {
		c.StateFilePath = v
	}

	switch os.Getenv("DRY_RUN") {
	case "1", "true", "yes":
		c.DryRun = true
	}

	overrideInt("HTTP_TIMEOUT", func(v int) { c.HTTPTimeout = time.Duration(v) * time.Second })
	overrideInt("MAX_ENTRIES_PER_FEED", func(v int) { c.MaxEntriesPerFeed = v })
	overrideInt("STATE_RETENTION_DAYS", func(v int) { c.StateRetentionDays = v })
	overrideInt("MAX_RETRIES", func(v int) { c.MaxRetries = v })
	overrideInt("MESSAGE_BATCH_SIZE", func(v int) { c.MessageBatchSize = v })
	overrideInt("MESSAGE_BYTE_LIMIT", func(v int) { c.MessageByteLimit = v })
	overrideInt("MAX_DAILY_ITEMS", func(v int) { c.MaxDailyItems = v })
	overrideInt("MAX_SUMMARY_REQUESTS", func(v int) { c.MaxSummaryRequests = v })
	overrideInt("SCORE_THRESHOLD", func(v int) { c.ScoreThreshold = float64(v) })
}

// overrideInt applies a positive integer environment override. Invalid values
// are logged and the configured value is kept.
func overrideInt(key string, apply func(int)) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("ignoring invalid environment override", "key", key, "value", v)
		return
	}
	apply(n)
}

// Validate checks the settings needed for a live (non-dry) run.
func (c *Config) Validate() error {
	if !c.DryRun && c.WebhookURL == "" {
		return fmt.Errorf("WECOM_WEBHOOK_URL is required unless DRY_RUN is set")
	}
	return nil
}
