package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/feed"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/ratelimit"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ int) (string, error) {
	return f.text, f.err
}

type fakeSummarizer struct {
	raw   string
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.raw, f.err
}

func (f *fakeSummarizer) Close() {}

func scored(id string, s float64) score.ScoredItem {
	return score.ScoredItem{
		Item: feed.Item{
			ID:      id,
			Title:   "title " + id,
			Link:    "https://example.org/" + id,
			Summary: "an rss summary long enough to summarize",
		},
		Score: s,
	}
}

func TestRunEnrichesAboveThreshold(t *testing.T) {
	sum := &fakeSummarizer{raw: `{"core_point":"要点","key_data":["数据1"],"impact":"影响"}`}
	e := New(&fakeExtractor{text: "full article text with much more detail than the rss summary"}, sum, ratelimit.New(10), 60, 6000, 0)

	items := []score.ScoredItem{scored("hi", 80), scored("lo", 40)}
	e.Run(context.Background(), items)

	if items[0].Enrichment == nil {
		t.Fatal("high-score item not enriched")
	}
	if items[0].Enrichment.CorePoint != "要点" {
		t.Errorf("CorePoint = %q", items[0].Enrichment.CorePoint)
	}
	if items[1].Enrichment != nil {
		t.Error("below-threshold item was enriched")
	}
	if sum.calls != 1 {
		t.Errorf("summarizer called %d times, want 1", sum.calls)
	}
}

func TestRunStopsAtRequestBudget(t *testing.T) {
	sum := &fakeSummarizer{raw: `{"core_point":"要点"}`}
	e := New(&fakeExtractor{text: "article"}, sum, ratelimit.New(2), 60, 6000, 0)

	items := []score.ScoredItem{scored("a", 90), scored("b", 85), scored("c", 80)}
	e.Run(context.Background(), items)

	if sum.calls != 2 {
		t.Errorf("summarizer called %d times, want budget of 2", sum.calls)
	}
	if items[2].Enrichment != nil {
		t.Error("item past the budget was enriched")
	}
	// budget exhaustion never drops items, they just keep RSS summaries
	if items[2].Summary == "" {
		t.Error("unenriched item lost its summary")
	}
}

func TestRunSummarizerFailureIsSilent(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("model overloaded")}
	e := New(&fakeExtractor{text: "article"}, sum, ratelimit.New(10), 60, 6000, 0)

	items := []score.ScoredItem{scored("a", 90)}
	e.Run(context.Background(), items)

	if items[0].Enrichment != nil {
		t.Error("failed enrichment attached a result")
	}
}

func TestRunUnparsableResponseIsSilent(t *testing.T) {
	sum := &fakeSummarizer{raw: "I could not produce JSON for this article."}
	e := New(&fakeExtractor{text: "article"}, sum, ratelimit.New(10), 60, 6000, 0)

	items := []score.ScoredItem{scored("a", 90)}
	e.Run(context.Background(), items)

	if items[0].Enrichment != nil {
		t.Error("unparsable response attached a result")
	}
}

func TestRunExtractionFailureFallsBackToSummary(t *testing.T) {
	sum := &fakeSummarizer{raw: `{"core_point":"要点"}`}
	e := New(&fakeExtractor{err: errors.New("403")}, sum, ratelimit.New(10), 60, 6000, 0)

	items := []score.ScoredItem{scored("a", 90)}
	e.Run(context.Background(), items)

	if items[0].Enrichment == nil {
		t.Error("extraction failure blocked enrichment despite the RSS summary")
	}
}

func TestRunNilSummarizerIsNoop(t *testing.T) {
	e := New(nil, nil, ratelimit.New(10), 60, 6000, 0)
	items := []score.ScoredItem{scored("a", 90)}
	e.Run(context.Background(), items)
	if items[0].Enrichment != nil {
		t.Error("enrichment happened without a summarizer")
	}
}
