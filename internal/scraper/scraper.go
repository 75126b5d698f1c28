package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Extractor fetches article pages and pulls out readable body text.
type Extractor struct {
	client *http.Client
}

func NewExtractor(timeout time.Duration) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: timeout},
	}
}

// selector cascade tried in order; the first one yielding enough paragraphs
// wins.
var contentSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".post-content p",
	".entry-content p",
	".press-release p",
	"main p",
	"#content p",
	".content p",
	"p",
}

var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "sign up", "log in",
	"advertisement", "sponsored", "read more", "follow us",
	"share this", "related articles", "all rights reserved",
}

// Extract downloads url and returns cleaned article text, truncated to
// maxLength bytes preferring a sentence boundary inside the last 20% of the
// budget.
func (e *Extractor) Extract(ctx context.Context, url string, maxLength int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CryptoPolicyBot/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	content := extractParagraphs(doc)
	if content == "" {
		return "", fmt.Errorf("no readable content")
	}

	return TruncateAtSentence(content, maxLength), nil
}

func extractParagraphs(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) < 30 {
				return
			}
			if isJunk(text) {
				return
			}
			paragraphs = append(paragraphs, text)
		})
		if len(paragraphs) >= 2 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// TruncateAtSentence cuts text to at most maxLength bytes. When a sentence
// terminator falls inside the last 20% of the budget the cut lands there, so
// the summarizer gets whole sentences where possible.
func TruncateAtSentence(text string, maxLength int) string {
	if maxLength <= 0 || len(text) <= maxLength {
		return text
	}

	cut := text[:maxLength]
	// back off a rune split by the byte cut
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r == utf8.RuneError && size == 1 {
			cut = cut[:len(cut)-1]
			continue
		}
		break
	}

	floor := maxLength * 4 / 5
	best := -1
	for _, term := range []string{". ", "! ", "? ", "。", "！", "？"} {
		if idx := strings.LastIndex(cut, term); idx > best {
			best = idx + len(term) - 1
		}
	}
	if best >= floor {
		return strings.TrimSpace(cut[:best+1])
	}
	return strings.TrimSpace(cut)
}
