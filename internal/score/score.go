package score

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/feed"
)

// Enrichment is the structured summary attached to high-score items.
// KeyData is capped for display, not here.
type Enrichment struct {
	CorePoint string
	KeyData   []string
	Impact    string
}

// ScoredItem pairs a feed item with its popularity score for this run.
// Scores are recomputed every run and never persisted.
type ScoredItem struct {
	feed.Item
	Score      float64
	Enrichment *Enrichment
}

// Weights are the static tables driving the scorer. They are injected so
// tests and deployments can swap them without touching the algorithm.
type Weights struct {
	// SourceAuthority maps source names to 0-35 authority points.
	SourceAuthority map[string]float64
	// DefaultAuthority is used for sources missing from the table.
	DefaultAuthority float64
	// HotKeywords maps title keywords to points; the matched sum is capped
	// by HotKeywordCap.
	HotKeywords   map[string]float64
	HotKeywordCap float64
	// DomainKeywords grant a flat DomainBonus when any of them appears in
	// title+summary (loose substring match on purpose).
	DomainKeywords []string
	DomainBonus    float64
	// DomainTags grant DomainTagBonus when the item's tags intersect them.
	DomainTags     []string
	DomainTagBonus float64
}

// DefaultWeights returns the production tables for crypto-policy sources.
// The Cardano block is a deliberate product skew carried over as data.
func DefaultWeights() Weights {
	return Weights{
		SourceAuthority: map[string]float64{
			"SEC":       35,
			"Fed":       33,
			"FSB":       32,
			"BIS":       32,
			"IMF":       30,
			"ECB":       30,
			"CFTC":      28,
			"FCA":       26,
			"MAS":       25,
			"HKMA":      25,
			"CoinDesk":  18,
			"TheBlock":  16,
			"Cointele":  14,
			"Decrypt":   12,
		},
		DefaultAuthority: 10,
		HotKeywords: map[string]float64{
			"approved":    7,
			"approval":    7,
			"etf":         6,
			"stablecoin":  6,
			"regulation":  5,
			"enforcement": 5,
			"lawsuit":     5,
			"ban":         5,
			"cbdc":        5,
			"sanction":    4,
			"framework":   4,
			"license":     4,
			"bitcoin":     3,
			"ethereum":    3,
			"custody":     3,
			"hearing":     2,
		},
		HotKeywordCap: 25,
		DomainKeywords: []string{
			"cardano",
			"ada ecosystem",
			"hoskinson",
			"hydra upgrade",
			"ouroboros",
		},
		DomainBonus:    20,
		DomainTags:     []string{"cardano", "ada"},
		DomainTagBonus: 10,
	}
}

// Score computes the popularity score of one item at time now. It is a pure
// function of the item, the weight tables and now; only the recency component
// makes scores drift between runs for items near a tier boundary.
func Score(item feed.Item, w Weights, now time.Time) float64 {
	title := strings.ToLower(item.Title)
	text := title + " " + strings.ToLower(item.Summary)

	authority, ok := w.SourceAuthority[item.Source]
	if !ok {
		authority = w.DefaultAuthority
	}

	var hotwords float64
	for kw, points := range w.HotKeywords {
		if strings.Contains(title, kw) {
			hotwords += points
		}
	}
	if hotwords > w.HotKeywordCap {
		hotwords = w.HotKeywordCap
	}

	total := authority + hotwords + recencyPoints(now.Sub(item.Published))

	// Quality heuristics; the title window counts characters, not bytes, so
	// CJK titles are judged by the same yardstick
	if n := utf8.RuneCountInString(item.Title); n >= 20 && n <= 80 {
		total += 5
	}
	if len(item.Summary) > 50 {
		total += 5
	}
	if item.Link != "" {
		total += 5
	}

	// Domain bonus: substring match is intentionally looser than the
	// filter's word-boundary rule.
	for _, kw := range w.DomainKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			total += w.DomainBonus
			break
		}
	}
	for _, tag := range item.Tags {
		if containsString(w.DomainTags, tag) {
			total += w.DomainTagBonus
			break
		}
	}

	return total
}

// recencyPoints is strictly tiered, no interpolation.
func recencyPoints(age time.Duration) float64 {
	switch {
	case age <= 2*time.Hour:
		return 20
	case age <= 6*time.Hour:
		return 15
	case age <= 12*time.Hour:
		return 10
	case age <= 24*time.Hour:
		return 5
	default:
		return 0
	}
}

// Rank sorts by score descending with publication time as tie-break and
// truncates to the daily cap. Truncation happens before enrichment so no
// LLM budget is spent on dropped items.
func Rank(items []ScoredItem, maxItems int) []ScoredItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Published.After(items[j].Published)
	})

	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
