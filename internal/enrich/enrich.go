package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/metrics"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/ratelimit"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
)

// TextExtractor fetches full article text for a link, bounded to maxLength.
type TextExtractor interface {
	Extract(ctx context.Context, url string, maxLength int) (string, error)
}

// Enricher attaches structured summaries to items above the score threshold.
// Every failure here is silent: the item keeps its RSS summary and stays in
// the digest.
type Enricher struct {
	extractor  TextExtractor
	summarizer Summarizer
	limiter    *ratelimit.Limiter

	threshold  float64
	maxContent int
	delay      time.Duration
}

func New(extractor TextExtractor, summarizer Summarizer, limiter *ratelimit.Limiter, threshold float64, maxContent int, delay time.Duration) *Enricher {
	return &Enricher{
		extractor:  extractor,
		summarizer: summarizer,
		limiter:    limiter,
		threshold:  threshold,
		maxContent: maxContent,
		delay:      delay,
	}
}

// Run enriches items in ranked order, in place. It never removes or reorders
// items. Calls are paced by the configured delay and capped by the per-run
// request budget.
func (e *Enricher) Run(ctx context.Context, items []score.ScoredItem) {
	if e.summarizer == nil {
		return
	}

	attempted := 0
	for i := range items {
		if items[i].Score < e.threshold {
			continue
		}
		if !e.limiter.Allow() {
			logger.Warn("summary request budget exhausted, remaining items keep RSS summaries")
			return
		}

		if attempted > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.delay):
			}
		}
		attempted++

		result := e.enrichOne(ctx, &items[i])
		if result == nil {
			metrics.Global.IncrementEnrichmentsFailed()
			continue
		}
		items[i].Enrichment = result
		metrics.Global.IncrementEnrichmentsOK()
	}
}

func (e *Enricher) enrichOne(ctx context.Context, item *score.ScoredItem) *score.Enrichment {
	content := item.Summary
	if item.Link != "" && e.extractor != nil {
		full, err := e.extractor.Extract(ctx, item.Link, e.maxContent)
		if err != nil {
			logger.Debug("full-text extraction failed, using RSS summary", "link", item.Link, "error", err)
		} else if len(full) > len(content) {
			content = full
		}
	}

	if strings.TrimSpace(content) == "" {
		logger.Debug("no content to summarize", "title", item.Title)
		return nil
	}

	raw, err := e.summarizer.Summarize(ctx, item.Title, content)
	if err != nil {
		logger.Warn("summarizer call failed", "title", item.Title, "error", err)
		return nil
	}

	result, err := ParseResult(raw)
	if err != nil {
		logger.Warn("summarizer response unusable", "title", item.Title, "error", err)
		return nil
	}

	logger.Debug("item enriched", "title", item.Title)
	return result
}
