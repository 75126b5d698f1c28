package message

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
)

// Importance bands are display-only and independent from the enrichment
// threshold.
const (
	mustReadScore  = 70
	importantScore = 50
)

const (
	markdownSummaryWidth = 150
	textSummaryWidth     = 120
	maxTagChips          = 5
	maxKeyDataShown      = 3
)

var beijing = time.FixedZone("CST", 8*60*60)

func bandMarker(s float64) string {
	switch {
	case s >= mustReadScore:
		return "🔴必读"
	case s >= importantScore:
		return "⭐重要"
	default:
		return "📎参考"
	}
}

// FormatMarkdown renders a batch as one WeCom markdown message.
func FormatMarkdown(items []score.ScoredItem, now time.Time) string {
	var b strings.Builder

	b.WriteString("# 📚 加密政策/研报速览\n")
	b.WriteString(fmt.Sprintf("> ⏰ %s 北京时间\n\n", now.In(beijing).Format("2006-01-02 15:04")))

	for i, item := range items {
		sourceTag := fmt.Sprintf("<font color=\"info\">[%s]</font>", item.Source)
		b.WriteString(fmt.Sprintf("**%d. %s %s %s**\n", i+1, bandMarker(item.Score), sourceTag, displayTitle(item)))

		if item.Enrichment != nil {
			b.WriteString(fmt.Sprintf("> 💡 %s\n", item.Enrichment.CorePoint))
			for _, kd := range capKeyData(item.Enrichment.KeyData) {
				b.WriteString(fmt.Sprintf("> 📊 %s\n", kd))
			}
			if item.Enrichment.Impact != "" {
				b.WriteString(fmt.Sprintf("> 🎯 %s\n", item.Enrichment.Impact))
			}
		} else if s := displaySummary(item); s != "" {
			b.WriteString(fmt.Sprintf("> %s\n", truncateRunes(s, markdownSummaryWidth)))
		}

		if item.Link != "" {
			b.WriteString(fmt.Sprintf("[👉 阅读原文](%s)\n", item.Link))
		}
		b.WriteString("\n")
	}

	if chips := tagChips(items); chips != "" {
		b.WriteString(chips)
		b.WriteString("\n")
	}

	return b.String()
}

// FormatText is the shorter plain-text fallback for a whole batch.
func FormatText(items []score.ScoredItem, now time.Time) string {
	var b strings.Builder

	b.WriteString("📚 加密政策/研报速览\n")
	b.WriteString(fmt.Sprintf("⏰ %s 北京时间\n", now.In(beijing).Format("2006-01-02 15:04")))
	b.WriteString(strings.Repeat("━", 18))
	b.WriteString("\n\n")

	for i, item := range items {
		b.WriteString(formatItemText(item, i+1))
		b.WriteString("\n")
	}

	return b.String()
}

// FormatSingleText renders one item as a standalone plain-text message.
// The link sits on its own line right after the title so it survives tail
// truncation as long as the budget allows.
func FormatSingleText(item score.ScoredItem, now time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📚 %s 北京时间\n", now.In(beijing).Format("2006-01-02 15:04")))
	b.WriteString(formatItemText(item, 1))
	return b.String()
}

func formatItemText(item score.ScoredItem, number int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%d. %s [%s] %s\n", number, bandMarker(item.Score), item.Source, displayTitle(item)))
	if item.Link != "" {
		b.WriteString(fmt.Sprintf("   🔗 %s\n", item.Link))
	}

	if item.Enrichment != nil {
		b.WriteString(fmt.Sprintf("   💡 %s\n", item.Enrichment.CorePoint))
		for _, kd := range capKeyData(item.Enrichment.KeyData) {
			b.WriteString(fmt.Sprintf("   📊 %s\n", kd))
		}
		if item.Enrichment.Impact != "" {
			b.WriteString(fmt.Sprintf("   🎯 %s\n", item.Enrichment.Impact))
		}
	} else if s := displaySummary(item); s != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", truncateRunes(s, textSummaryWidth)))
	}

	return b.String()
}

func displayTitle(item score.ScoredItem) string {
	if item.TitleZH != "" {
		return item.TitleZH
	}
	return item.Title
}

func displaySummary(item score.ScoredItem) string {
	if item.SummaryZH != "" {
		return item.SummaryZH
	}
	return item.Summary
}

func capKeyData(kd []string) []string {
	if len(kd) > maxKeyDataShown {
		return kd[:maxKeyDataShown]
	}
	return kd
}

// tagChips renders the union of batch tags, sorted, at most five.
func tagChips(items []score.ScoredItem) string {
	set := map[string]struct{}{}
	for _, item := range items {
		for _, tag := range item.Tags {
			set[tag] = struct{}{}
		}
	}
	if len(set) == 0 {
		return ""
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	if len(tags) > maxTagChips {
		tags = tags[:maxTagChips]
	}

	chips := make([]string, len(tags))
	for i, tag := range tags {
		chips[i] = "`#" + tag + "`"
	}
	return strings.Join(chips, " ")
}

// truncateRunes cuts on rune boundaries so multi-byte text never splits.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// TruncateAtNewline hard-caps a payload to limit bytes, cutting at the last
// newline before the limit when one exists. The result is never empty for
// non-empty input.
func TruncateAtNewline(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}

	cut := s[:limit]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r == utf8.RuneError && size == 1 {
			cut = cut[:len(cut)-1]
			continue
		}
		break
	}

	if idx := strings.LastIndex(cut, "\n"); idx > 0 {
		return cut[:idx]
	}
	return cut
}
