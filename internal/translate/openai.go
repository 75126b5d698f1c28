package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITranslator is the quality fallback used when the free endpoint is
// down or rate-limited. Enabled by setting OPENAI_API_KEY.
type OpenAITranslator struct {
	client *openai.Client
}

func NewOpenAITranslator(apiKey string) *OpenAITranslator {
	return &OpenAITranslator{client: openai.NewClient(apiKey)}
}

func (o *OpenAITranslator) Translate(text string) (string, error) {
	prompt := fmt.Sprintf(`Translate the following English financial news text to Simplified Chinese.
Keep institution names and ticker symbols in their original form.
Output only the translation, no commentary.

Text:
%s`, text)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
