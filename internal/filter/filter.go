package filter

import (
	"regexp"
	"strings"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/feed"
)

// Options carries the keyword and tag configuration for one run.
type Options struct {
	AllowKeywords []string
	DenyKeywords  []string
	TagsEnabled   bool
	IncludeTags   []string
	ExcludeTags   []string
}

// Keep decides whether an item survives filtering. Evaluation order:
// deny keywords, then allow keywords, then tags. Deny matching is
// word-bounded so "etf" does not fire inside "platform"; allow matching is
// a plain substring check so "etf" still catches "ETFs" and "token" catches
// "tokens".
func Keep(item feed.Item, opts Options) bool {
	text := item.Title + " " + item.Summary

	if matchesAnyWord(text, opts.DenyKeywords) {
		return false
	}

	if len(opts.AllowKeywords) > 0 && !matchesAnySubstring(text, opts.AllowKeywords) {
		return false
	}

	if opts.TagsEnabled {
		if len(opts.ExcludeTags) > 0 && intersects(item.Tags, opts.ExcludeTags) {
			return false
		}
		if len(opts.IncludeTags) > 0 && !intersects(item.Tags, opts.IncludeTags) {
			return false
		}
	}

	return true
}

// matchesAnyWord reports whether any keyword appears in text as a whole word
// or phrase, case-insensitively.
func matchesAnyWord(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// matchesAnySubstring reports whether any keyword appears anywhere in text,
// case-insensitively. Looser than the word rule on purpose: the allow list
// should catch inflected forms.
func matchesAnySubstring(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
