package translate

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChineseRatio(t *testing.T) {
	cases := []struct {
		text string
		min  float64
		max  float64
	}{
		{"", 0, 0},
		{"Bitcoin ETF approved by SEC", 0, 0},
		{"比特币ETF获批", 0.5, 1},
		{"SEC批准", 0.2, 0.6},
	}
	for _, tc := range cases {
		got := chineseRatio(tc.text)
		if got < tc.min || got > tc.max {
			t.Errorf("chineseRatio(%q) = %v, want in [%v, %v]", tc.text, got, tc.min, tc.max)
		}
	}
}

func TestToChineseSkipsChineseText(t *testing.T) {
	tr := New(0, nil)
	in := "美联储宣布维持利率不变，市场反应平淡。"
	if got := tr.ToChinese(in); got != in {
		t.Errorf("ToChinese changed already-Chinese text: %q", got)
	}
}

func TestToChineseEmptyInput(t *testing.T) {
	tr := New(0, nil)
	if got := tr.ToChinese("   "); got != "" {
		t.Errorf("ToChinese(blank) = %q, want empty", got)
	}
}

func TestClipBytesNeverSplitsRune(t *testing.T) {
	// English text with an embedded CJK term stays valid UTF-8 after the cut
	text := strings.Repeat("a", 498) + "稳定币"
	got := clipBytes(text, 500)
	if len(got) > 500 {
		t.Errorf("clipped to %d bytes, want at most 500", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("clip produced invalid UTF-8: %q", got[490:])
	}
	if !strings.HasPrefix(text, got) {
		t.Error("clip result is not a prefix of the input")
	}

	if got := clipBytes("short", 500); got != "short" {
		t.Errorf("clipBytes = %q, want input unchanged under the limit", got)
	}
}

func TestParseGoogleResponse(t *testing.T) {
	body := []byte(`[[["美国证券交易委员会批准了","The SEC approved",null,null,3],["现货比特币ETF。","spot bitcoin ETFs.",null,null,3]],null,"en"]`)

	got, err := parseGoogleResponse(body)
	if err != nil {
		t.Fatal(err)
	}
	want := "美国证券交易委员会批准了现货比特币ETF。"
	if got != want {
		t.Errorf("parseGoogleResponse = %q, want %q", got, want)
	}
}

func TestParseGoogleResponseRejectsGarbage(t *testing.T) {
	for _, body := range []string{`not json`, `[]`, `{"a":1}`, `["flat string"]`} {
		if _, err := parseGoogleResponse([]byte(body)); err == nil {
			t.Errorf("parseGoogleResponse(%q) accepted invalid payload", body)
		}
	}
}

func TestGlossarySubstitute(t *testing.T) {
	got := GlossarySubstitute("New stablecoin regulation announced")
	if !strings.Contains(got, "稳定币(stablecoin)") {
		t.Errorf("stablecoin not annotated: %q", got)
	}
	if !strings.Contains(got, "监管(regulation)") {
		t.Errorf("regulation not annotated: %q", got)
	}
}

func TestGlossarySubstituteLongestWins(t *testing.T) {
	got := GlossarySubstitute("The Securities and Exchange Commission ruled today")
	if !strings.Contains(got, "美国证券交易委员会(Securities and Exchange Commission)") {
		t.Errorf("full name not annotated as one term: %q", got)
	}
	if strings.Contains(got, "交易所") {
		t.Errorf("inner word annotated despite the longer phrase matching: %q", got)
	}
}

func TestGlossarySubstituteCaseInsensitive(t *testing.T) {
	got := GlossarySubstitute("BITCOIN hits new high")
	if !strings.Contains(got, "比特币(BITCOIN)") {
		t.Errorf("uppercase term not annotated: %q", got)
	}
}

func TestGlossarySubstituteUnknownTextUnchanged(t *testing.T) {
	in := "quarterly earnings call transcript"
	if got := GlossarySubstitute(in); got != in {
		t.Errorf("GlossarySubstitute altered text without glossary terms: %q", got)
	}
}
