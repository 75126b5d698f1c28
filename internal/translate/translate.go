package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/cache"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/metrics"
)

// Translator turns English feed text into Chinese. The chain is: free Google
// endpoint, OpenAI when configured, then the built-in glossary. Any failure
// falls back to the next step and ultimately to the original text; the
// pipeline never fails on translation.
type Translator struct {
	client   *http.Client
	cache    *cache.Cache
	openAI   openAIClient
	maxInput int
}

// openAIClient is the optional high-quality fallback.
type openAIClient interface {
	Translate(text string) (string, error)
}

func New(timeout time.Duration, openAI openAIClient) *Translator {
	return &Translator{
		client:   &http.Client{Timeout: timeout},
		cache:    cache.New(),
		openAI:   openAI,
		maxInput: 500,
	}
}

// ToChinese translates text to Chinese. Text that is already mostly CJK is
// returned unchanged.
func (t *Translator) ToChinese(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if chineseRatio(text) > 0.3 {
		return text
	}
	text = clipBytes(text, t.maxInput)

	key := t.cache.GenerateKey(text)
	if translated, ok := t.cache.Get(key); ok {
		return translated
	}

	if translated, err := t.googleTranslate(text); err == nil && translated != "" && translated != text {
		metrics.Global.IncrementTranslationsOK()
		t.cache.Set(key, translated, time.Hour)
		return translated
	} else if err != nil {
		logger.Debug("google translate failed", "error", err)
	}

	if t.openAI != nil {
		if translated, err := t.openAI.Translate(text); err == nil && translated != "" && translated != text {
			metrics.Global.IncrementTranslationsOK()
			t.cache.Set(key, translated, time.Hour)
			return translated
		} else if err != nil {
			logger.Debug("openai translate failed", "error", err)
		}
	}

	metrics.Global.IncrementTranslationsFailed()
	logger.Warn("translation services unavailable, using glossary substitution")
	return GlossarySubstitute(text)
}

// googleTranslate uses the public gtx endpoint; good enough for a
// low-volume batch job.
func (t *Translator) googleTranslate(text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "en")
	params.Set("tl", "zh-CN")
	params.Set("dt", "t")
	params.Set("q", text)

	resp, err := t.client.Get("https://translate.googleapis.com/translate_a/single?" + params.Encode())
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	return parseGoogleResponse(body)
}

// parseGoogleResponse unpacks the nested-array response of the gtx endpoint.
func parseGoogleResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response")
	}

	segments, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, segment := range segments {
		if parts, ok := segment.([]interface{}); ok && len(parts) > 0 {
			if s, ok := parts[0].(string); ok {
				result.WriteString(s)
			}
		}
	}
	return result.String(), nil
}

// clipBytes caps text to max bytes without splitting a multi-byte rune:
// mixed-language input can carry CJK even below the skip threshold.
func clipBytes(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r == utf8.RuneError && size == 1 {
			cut = cut[:len(cut)-1]
			continue
		}
		break
	}
	return cut
}

func chineseRatio(text string) float64 {
	if text == "" {
		return 0
	}
	runes := []rune(text)
	han := 0
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	return float64(han) / float64(len(runes))
}

// glossary maps common financial and crypto terms to Chinese. Longest terms
// substitute first so phrases win over their parts.
var glossary = map[string]string{
	"Securities and Exchange Commission": "美国证券交易委员会",
	"central bank digital currency":      "央行数字货币",
	"Bank for International Settlements": "国际清算银行",
	"International Monetary Fund":        "国际货币基金组织",
	"Financial Stability Board":          "金融稳定委员会",
	"Federal Reserve":                    "美联储",
	"European Central Bank":              "欧洲央行",
	"anti-money laundering":              "反洗钱",
	"financial stability":                "金融稳定",
	"consumer protection":                "消费者保护",
	"monetary policy":                    "货币政策",
	"digital asset":                      "数字资产",
	"virtual asset":                      "虚拟资产",
	"cryptocurrency":                     "加密货币",
	"stablecoin":                         "稳定币",
	"blockchain":                         "区块链",
	"bitcoin":                            "比特币",
	"ethereum":                           "以太坊",
	"regulation":                         "监管",
	"compliance":                         "合规",
	"enforcement":                        "执法",
	"sanctions":                          "制裁",
	"framework":                          "框架",
	"guidance":                           "指引",
	"custody":                            "托管",
	"exchange":                           "交易所",
	"CBDC":                               "央行数字货币",
	"DeFi":                               "去中心化金融",
	"token":                              "代币",
}

// glossaryRe matches any glossary term, longest alternatives first so
// phrases win over their parts. glossaryLower resolves matched text back to
// its Chinese equivalent regardless of casing.
var (
	glossaryRe    *regexp.Regexp
	glossaryLower map[string]string
)

func init() {
	terms := make([]string, 0, len(glossary))
	glossaryLower = make(map[string]string, len(glossary))
	for term, zh := range glossary {
		terms = append(terms, term)
		glossaryLower[strings.ToLower(term)] = zh
	}
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	glossaryRe = regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}

// GlossarySubstitute annotates known terms with their Chinese equivalents.
// It is a readability aid, not a real translation. A single pass keeps
// substituted text from matching again.
func GlossarySubstitute(text string) string {
	return glossaryRe.ReplaceAllStringFunc(text, func(match string) string {
		zh, ok := glossaryLower[strings.ToLower(match)]
		if !ok {
			return match
		}
		return zh + "(" + match + ")"
	})
}
