package app

import (
	"context"
	"os"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/config"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/enrich"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/feed"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/filter"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/message"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/metrics"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/ratelimit"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/scraper"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/state"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/translate"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/wecom"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultFeedsPath  = "configs/feeds.yaml"
	translatePause    = 500 * time.Millisecond
)

// Run executes one full pipeline pass:
// ingest -> dedupe -> filter -> score -> rank -> translate -> enrich ->
// format -> dispatch -> persist state. It returns the process exit code.
func Run() int {
	start := time.Now()
	ctx := context.Background()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	feedsPath := os.Getenv("FEEDS_PATH")
	if feedsPath == "" {
		feedsPath = defaultFeedsPath
	}

	cfg := config.Load(configPath)

	sources, err := feed.LoadSources(feedsPath)
	if err != nil {
		logger.Error("cannot load feed sources", "error", err)
		return 1
	}
	if len(sources) == 0 {
		logger.Error("no enabled feed sources configured, nothing to do")
		return 1
	}

	store := openStore(cfg)
	defer store.Close()

	now := time.Now().UTC()
	store.Prune(cfg.StateRetentionDays, now)

	candidates := ingest(ctx, cfg, sources, store)
	logger.Info("new candidate items", "count", len(candidates))

	scored := scoreAll(candidates, now)
	selected := score.Rank(scored, cfg.MaxDailyItems)
	metrics.Global.AddItemsSelected(len(selected))
	logger.Info("items selected for delivery", "count", len(selected), "cap", cfg.MaxDailyItems)

	translateSelected(cfg, selected)
	enrichSelected(ctx, cfg, selected)

	if err := cfg.Validate(); err != nil {
		logger.Error("delivery not configured, skipping dispatch", "error", err)
		return 0
	}

	sender := wecom.NewClient(cfg.WebhookURL, cfg.HTTPTimeout, cfg.MaxRetries, cfg.RetryBackoffBase, cfg.DryRun)
	dispatcher := message.NewDispatcher(sender, cfg.MessageBatchSize, cfg.MessageByteLimit, cfg.MessageDelay)

	sentIDs := dispatcher.Dispatch(ctx, selected)
	for _, id := range sentIDs {
		store.MarkSent(id, now)
	}

	if err := store.Save(); err != nil {
		logger.Error("cannot persist dedupe state", "error", err)
		metrics.Global.SetError(err.Error())
		return 1
	}

	metrics.Global.RecordRun(time.Since(start))
	logger.Info("run complete", "delivered", len(sentIDs), "duration", time.Since(start).Round(time.Millisecond))
	return 0
}

func openStore(cfg *config.Config) state.Store {
	if cfg.DatabaseURL != "" {
		store, err := state.NewPostgresStore(cfg.DatabaseURL)
		if err == nil {
			return store
		}
		logger.Warn("postgres dedupe store unavailable, falling back to file", "error", err)
	}
	return state.LoadFile(cfg.StateFilePath)
}

// ingest fetches every source, drops already-sent and filtered entries, and
// collapses ID collisions to the first occurrence. One failing source never
// affects the others.
func ingest(ctx context.Context, cfg *config.Config, sources []feed.Source, store state.Store) []feed.Item {
	fetcher := feed.NewFetcher(cfg.HTTPTimeout, cfg.MaxEntriesPerFeed, cfg.SummaryMaxLength, cfg.MaxRetries, cfg.RetryBackoffBase)

	filterOpts := filter.Options{
		AllowKeywords: cfg.KeywordsAllow,
		DenyKeywords:  cfg.KeywordsDeny,
		TagsEnabled:   cfg.TagsFilterEnabled,
		IncludeTags:   cfg.TagsInclude,
		ExcludeTags:   cfg.TagsExclude,
	}

	seen := map[string]struct{}{}
	var candidates []feed.Item

	for _, src := range sources {
		items, err := fetcher.Fetch(ctx, src)
		if err != nil {
			logger.Error("source failed, skipping", "source", src.Name, "error", err)
			continue
		}
		metrics.Global.AddItemsFetched(len(items))

		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}

			if store.IsSent(item.ID) {
				metrics.Global.IncrementDuplicatesSkipped()
				continue
			}
			if !filter.Keep(item, filterOpts) {
				metrics.Global.IncrementItemsFiltered()
				continue
			}
			candidates = append(candidates, item)
		}
	}

	return candidates
}

func scoreAll(items []feed.Item, now time.Time) []score.ScoredItem {
	weights := score.DefaultWeights()
	scored := make([]score.ScoredItem, len(items))
	for i, item := range items {
		scored[i] = score.ScoredItem{
			Item:  item,
			Score: score.Score(item, weights, now),
		}
	}
	return scored
}

// translateSelected fills in Chinese titles and summaries for the items that
// will actually be delivered. Calls are paced to stay under the free-tier
// limits.
func translateSelected(cfg *config.Config, items []score.ScoredItem) {
	translator := translate.New(cfg.HTTPTimeout, nil)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		translator = translate.New(cfg.HTTPTimeout, translate.NewOpenAITranslator(key))
	}

	for i := range items {
		items[i].TitleZH = translator.ToChinese(items[i].Title)
		time.Sleep(translatePause)
		items[i].SummaryZH = translator.ToChinese(items[i].Summary)
		time.Sleep(translatePause)
	}
}

func enrichSelected(ctx context.Context, cfg *config.Config, items []score.ScoredItem) {
	if !cfg.SmartSummaryEnabled {
		return
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("smart summary enabled but GEMINI_API_KEY is missing, skipping enrichment")
		return
	}

	summarizer, err := enrich.NewGeminiSummarizer(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn("summarizer unavailable, items keep RSS summaries", "error", err)
		return
	}
	defer summarizer.Close()

	enricher := enrich.New(
		scraper.NewExtractor(cfg.HTTPTimeout),
		summarizer,
		ratelimit.New(cfg.MaxSummaryRequests),
		cfg.ScoreThreshold,
		cfg.MaxContentLength,
		cfg.EnrichDelay,
	)
	enricher.Run(ctx, items)
}
