package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/retry"
)

// MsgType selects the WeCom payload shape.
type MsgType string

const (
	Markdown MsgType = "markdown"
	Text     MsgType = "text"
)

// Client posts messages to a WeCom group webhook. In dry-run mode nothing
// leaves the process: the payload is logged and reported as sent.
type Client struct {
	webhookURL  string
	httpClient  *http.Client
	retryConfig retry.Config
	dryRun      bool
}

func NewClient(webhookURL string, timeout time.Duration, maxRetries, backoffBase int, dryRun bool) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		retryConfig: retry.Config{
			MaxAttempts: maxRetries,
			Backoff:     true,
			BackoffBase: backoffBase,
		},
		dryRun: dryRun,
	}
}

type apiResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Send delivers one message, retrying with exponential backoff on failure.
func (c *Client) Send(ctx context.Context, msgType MsgType, content string) error {
	if c.dryRun {
		logger.Info("[dry-run] would send message", "type", string(msgType), "bytes", len(content))
		logger.Debug("[dry-run] payload preview", "content", content)
		return nil
	}

	return retry.Do(ctx, c.retryConfig, func() error {
		return c.sendOnce(ctx, msgType, content)
	})
}

func (c *Client) sendOnce(ctx context.Context, msgType MsgType, content string) error {
	payload := map[string]interface{}{
		"msgtype": string(msgType),
		string(msgType): map[string]string{
			"content": content,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read webhook response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("wecom api error %d: %s", result.ErrCode, result.ErrMsg)
	}

	return nil
}
