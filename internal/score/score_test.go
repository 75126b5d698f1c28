package score

import (
	"testing"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/feed"
)

func testWeights() Weights {
	return DefaultWeights()
}

func TestHighValueScenario(t *testing.T) {
	now := time.Now().UTC()
	item := feed.Item{
		ID:        "SEC:1",
		Title:     "Bitcoin ETF Approved",
		Source:    "SEC",
		Published: now.Add(-1 * time.Hour),
	}

	got := Score(item, testWeights(), now)
	// authority 35 + hotwords 16 (etf 6 + approved 7 + bitcoin 3) +
	// recency 20 + title-length bonus 5
	if got < 76 {
		t.Errorf("Score = %v, want >= 76", got)
	}
}

func TestRecencyMonotonicity(t *testing.T) {
	now := time.Now().UTC()
	w := testWeights()
	base := feed.Item{Title: "Stablecoin rules finalized today", Source: "FCA"}

	ages := []time.Duration{
		30 * time.Minute,
		3 * time.Hour,
		8 * time.Hour,
		20 * time.Hour,
		48 * time.Hour,
	}

	prev := -1.0
	for i := len(ages) - 1; i >= 0; i-- {
		item := base
		item.Published = now.Add(-ages[i])
		got := Score(item, w, now)
		if prev >= 0 && got < prev {
			t.Errorf("score decreased for fresher item: age %v -> %v, %v -> %v", ages[i+1], ages[i], prev, got)
		}
		prev = got
	}
}

func TestDomainBonusIsExactlyAdditive(t *testing.T) {
	now := time.Now().UTC()
	w := testWeights()

	// Same length with and without the domain keyword so quality bonuses
	// cannot shift.
	without := feed.Item{
		Title:     "Network upgrade draws regulator attention",
		Summary:   "The sardine network upgrade was discussed at length by several committees today.",
		Source:    "IMF",
		Published: now.Add(-3 * time.Hour),
	}
	with := without
	with.Summary = "The cardano network upgrade was discussed at length by several committees today."

	gotWithout := Score(without, w, now)
	gotWith := Score(with, w, now)
	if diff := gotWith - gotWithout; diff != w.DomainBonus {
		t.Errorf("domain keyword bonus = %v, want exactly %v", diff, w.DomainBonus)
	}
}

func TestDomainTagBonus(t *testing.T) {
	now := time.Now().UTC()
	w := testWeights()

	plain := feed.Item{Title: "Quarterly digital asset report published", Source: "BIS", Published: now.Add(-3 * time.Hour)}
	tagged := plain
	tagged.Tags = []string{"cardano"}

	if diff := Score(tagged, w, now) - Score(plain, w, now); diff != w.DomainTagBonus {
		t.Errorf("domain tag bonus = %v, want exactly %v", diff, w.DomainTagBonus)
	}
}

func TestUnknownSourceGetsDefaultAuthority(t *testing.T) {
	now := time.Now().UTC()
	w := testWeights()
	w.HotKeywords = nil

	item := feed.Item{Title: "x", Source: "SomeBlogNobodyKnows", Published: now.Add(-48 * time.Hour)}
	if got := Score(item, w, now); got != w.DefaultAuthority {
		t.Errorf("unknown source score = %v, want default authority %v", got, w.DefaultAuthority)
	}
}

func TestTitleLengthBonusCountsRunes(t *testing.T) {
	now := time.Now().UTC()
	w := Weights{DefaultAuthority: 0}
	published := now.Add(-48 * time.Hour)

	// 25 characters but 75 bytes: inside the window when counted in runes
	inWindow := feed.Item{
		Title:     "香港金管局公布稳定币发行人监管制度实施细则草案文件",
		Published: published,
	}
	if got := Score(inWindow, w, now); got != 5 {
		t.Errorf("Score = %v, want title bonus 5 for a 25-character title", got)
	}

	// 10 characters but 30 bytes: below the window despite the byte count
	short := feed.Item{
		Title:     "央行发布数字货币报告",
		Published: published,
	}
	if got := Score(short, w, now); got != 0 {
		t.Errorf("Score = %v, want no title bonus for a 10-character title", got)
	}
}

func TestHotKeywordCap(t *testing.T) {
	now := time.Now().UTC()
	w := Weights{
		DefaultAuthority: 0,
		HotKeywords: map[string]float64{
			"alpha": 10, "beta": 10, "gamma": 10, "delta": 10,
		},
		HotKeywordCap: 25,
	}

	item := feed.Item{Title: "alpha beta gamma delta", Source: "x", Published: now.Add(-48 * time.Hour)}
	got := Score(item, w, now)
	// 40 raw hotword points capped at 25, +5 title length bonus
	if got != 30 {
		t.Errorf("capped score = %v, want 30", got)
	}
}

func TestRankOrderAndCap(t *testing.T) {
	now := time.Now().UTC()
	items := make([]ScoredItem, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, ScoredItem{
			Item:  feed.Item{ID: string(rune('a' + i)), Published: now.Add(-time.Duration(i) * time.Minute)},
			Score: float64(i),
		})
	}

	ranked := Rank(items, 20)
	if len(ranked) != 20 {
		t.Fatalf("Rank kept %d items, want 20", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranking not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
	// the 5 lowest scores are gone
	for _, item := range ranked {
		if item.Score < 5 {
			t.Errorf("item with score %v survived the cap", item.Score)
		}
	}
}

func TestRankTieBreakOnPublished(t *testing.T) {
	now := time.Now().UTC()
	older := ScoredItem{Item: feed.Item{ID: "old", Published: now.Add(-2 * time.Hour)}, Score: 50}
	newer := ScoredItem{Item: feed.Item{ID: "new", Published: now.Add(-1 * time.Hour)}, Score: 50}

	ranked := Rank([]ScoredItem{older, newer}, 0)
	if ranked[0].ID != "new" {
		t.Errorf("tie-break should prefer newer publication, got %q first", ranked[0].ID)
	}
}
