package feed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/retry"
)

const userAgent = "Mozilla/5.0 (compatible; CryptoPolicyBot/1.0)"

// Fetcher downloads and normalizes one source at a time.
type Fetcher struct {
	parser      *gofeed.Parser
	maxEntries  int
	summaryMax  int
	retryConfig retry.Config
}

func NewFetcher(timeout time.Duration, maxEntries, summaryMax, maxRetries, backoffBase int) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{
		parser:     parser,
		maxEntries: maxEntries,
		summaryMax: summaryMax,
		retryConfig: retry.Config{
			MaxAttempts: maxRetries,
			Backoff:     true,
			BackoffBase: backoffBase,
		},
	}
}

// Fetch downloads one source and returns its normalized items, capped at the
// per-feed entry limit. The error covers only the fetch itself; a feed with
// zero usable entries is not an error.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]Item, error) {
	var parsed *gofeed.Feed
	err := retry.Do(ctx, f.retryConfig, func() error {
		var ferr error
		parsed, ferr = f.parser.ParseURLWithContext(src.URL, ctx)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name, err)
	}

	entries := parsed.Items
	if len(entries) > f.maxEntries {
		entries = entries[:f.maxEntries]
	}

	items := make([]Item, 0, len(entries))
	for _, raw := range entries {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			title = "(untitled)"
		}
		items = append(items, Item{
			ID:         GenerateEntryID(raw, src.Name),
			Title:      title,
			Link:       raw.Link,
			Summary:    ExtractSummary(raw, f.summaryMax),
			Published:  parseDate(raw),
			Source:     src.Name,
			SourceFull: src.FullName,
			Tags:       src.Tags,
		})
	}

	logger.Info("feed fetched", "source", src.Name, "entries", len(items))
	return items, nil
}

// GenerateEntryID builds a stable identifier for an entry: the feed-provided
// GUID when present, otherwise a hash of the link, otherwise a hash of the
// title. Always prefixed with the source name.
func GenerateEntryID(raw *gofeed.Item, sourceName string) string {
	if raw.GUID != "" {
		return sourceName + ":" + raw.GUID
	}
	if raw.Link != "" {
		return sourceName + ":" + shortHash(raw.Link)
	}
	return sourceName + ":" + shortHash(raw.Title)
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// parseDate picks the first usable timestamp and normalizes it to UTC.
// Entries without any parsable date get the current time so they sort as
// fresh rather than ancient.
func parseDate(raw *gofeed.Item) time.Time {
	if raw.PublishedParsed != nil {
		return raw.PublishedParsed.UTC()
	}
	if raw.UpdatedParsed != nil {
		return raw.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ExtractSummary pulls the best available summary text, strips HTML and
// truncates at the last word boundary within maxLength.
func ExtractSummary(raw *gofeed.Item, maxLength int) string {
	summary := raw.Description
	if summary == "" {
		summary = raw.Content
	}

	summary = htmlTagRe.ReplaceAllString(summary, "")
	summary = whitespaceRe.ReplaceAllString(summary, " ")
	summary = strings.TrimSpace(summary)

	if maxLength > 0 && len(summary) > maxLength {
		cut := summary[:maxLength]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		summary = cut + "..."
	}

	return summary
}
