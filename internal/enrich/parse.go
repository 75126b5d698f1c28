package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
)

// resultPayload mirrors the JSON the summarizer is asked to produce.
type resultPayload struct {
	CorePoint string          `json:"core_point"`
	KeyData   json.RawMessage `json:"key_data"`
	Impact    string          `json:"impact"`
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseResult extracts a structured summary from raw model output. The
// fallback chain is: direct JSON parse, first fenced code block, first
// balanced {...} span. A missing core_point fails the whole parse; missing
// key_data or impact default to empty.
func ParseResult(raw string) (*score.Enrichment, error) {
	candidates := jsonCandidates(raw)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var lastErr error
	for _, candidate := range candidates {
		var payload resultPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			lastErr = err
			continue
		}
		payload.CorePoint = strings.TrimSpace(payload.CorePoint)
		if payload.CorePoint == "" {
			lastErr = fmt.Errorf("response is missing core_point")
			continue
		}
		return &score.Enrichment{
			CorePoint: payload.CorePoint,
			KeyData:   decodeKeyData(payload.KeyData),
			Impact:    strings.TrimSpace(payload.Impact),
		}, nil
	}
	return nil, fmt.Errorf("could not parse summarizer response: %w", lastErr)
}

// jsonCandidates returns possible JSON payloads in fallback order.
func jsonCandidates(raw string) []string {
	var out []string

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		out = append(out, trimmed)
	}

	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		if block := strings.TrimSpace(m[1]); block != "" {
			out = append(out, block)
		}
	}

	if span := braceSpan(raw); span != "" {
		out = append(out, span)
	}

	return out
}

// braceSpan scans for the first balanced {...} span, string-aware.
func braceSpan(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}

// decodeKeyData accepts a list of strings, a single string, or anything
// coercible; everything else is quietly dropped.
func decodeKeyData(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compact(list)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return compact([]string{single})
	}

	var anything []any
	if err := json.Unmarshal(raw, &anything); err == nil {
		out := make([]string, 0, len(anything))
		for _, v := range anything {
			out = append(out, strings.TrimSpace(fmt.Sprintf("%v", v)))
		}
		return compact(out)
	}

	return []string{}
}

func compact(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
