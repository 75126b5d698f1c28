package enrich

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Summarizer produces raw model output for one article. Implementations are
// thin transport wrappers; all parsing and fallback logic lives in the
// enricher.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
	Close()
}

// GeminiSummarizer asks Gemini for a strict-JSON structured summary.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(ctx context.Context, apiKey string) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiSummarizer{client: client, model: "gemini-1.5-flash"}, nil
}

func (g *GeminiSummarizer) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

const summaryPrompt = `你是一名加密货币政策分析师。阅读下列新闻并输出 JSON。

标题: %s

正文:
%s

只输出一个 JSON 对象，不要输出任何其他文字，格式如下:
{"core_point": "一句话核心要点(中文)", "key_data": ["关键数据1", "关键数据2"], "impact": "一句话影响评估(中文)"}

要求:
- core_point 不超过 50 字
- key_data 最多列出 3 条，没有可靠数据时给空列表
- impact 说明对市场或监管格局的影响`

func (g *GeminiSummarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	model := g.client.GenerativeModel(g.model)

	prompt := fmt.Sprintf(summaryPrompt, title, content)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}
