package message

import (
	"context"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/metrics"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/wecom"
)

// Sender is the outbound webhook surface the dispatcher relies on.
type Sender interface {
	Send(ctx context.Context, msgType wecom.MsgType, content string) error
}

// Dispatcher batches ranked items, renders each batch through the
// degradation ladder and pushes the payloads out. One bad batch or oversized
// item never blocks the rest of the run.
type Dispatcher struct {
	sender    Sender
	batchSize int
	byteLimit int
	delay     time.Duration
	now       func() time.Time
}

func NewDispatcher(sender Sender, batchSize, byteLimit int, delay time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		batchSize: batchSize,
		byteLimit: byteLimit,
		delay:     delay,
		now:       time.Now,
	}
}

// Dispatch sends all items and returns the IDs that were delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, items []score.ScoredItem) []string {
	if len(items) == 0 {
		logger.Info("nothing to send")
		return nil
	}

	var sentIDs []string
	for start := 0; start < len(items); start += d.batchSize {
		end := start + d.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		if start > 0 {
			select {
			case <-ctx.Done():
				return sentIDs
			case <-time.After(d.delay):
			}
		}

		sentIDs = append(sentIDs, d.dispatchBatch(ctx, batch)...)
	}

	logger.Info("dispatch finished", "delivered", len(sentIDs), "total", len(items))
	return sentIDs
}

// dispatchBatch walks the degradation ladder for one batch:
// markdown render, plain-text render, per-item split, hard truncation.
// The byte budget is measured on the UTF-8 encoding.
func (d *Dispatcher) dispatchBatch(ctx context.Context, batch []score.ScoredItem) []string {
	now := d.now()

	if payload := FormatMarkdown(batch, now); len(payload) <= d.byteLimit {
		if d.send(ctx, wecom.Markdown, payload) {
			return itemIDs(batch)
		}
		return d.dispatchItems(ctx, batch)
	}

	logger.Warn("markdown render over byte budget, degrading to plain text", "items", len(batch))
	if payload := FormatText(batch, now); len(payload) <= d.byteLimit {
		if d.send(ctx, wecom.Text, payload) {
			return itemIDs(batch)
		}
		return d.dispatchItems(ctx, batch)
	}

	logger.Warn("plain render over byte budget, splitting batch", "items", len(batch))
	return d.dispatchItems(ctx, batch)
}

// dispatchItems delivers items one message each, truncating any single item
// that still exceeds the budget.
func (d *Dispatcher) dispatchItems(ctx context.Context, batch []score.ScoredItem) []string {
	var sentIDs []string
	for i, item := range batch {
		if i > 0 {
			select {
			case <-ctx.Done():
				return sentIDs
			case <-time.After(d.delay):
			}
		}

		payload := FormatSingleText(item, d.now())
		if len(payload) > d.byteLimit {
			payload = TruncateAtNewline(payload, d.byteLimit)
			logger.Warn("single item over byte budget, truncated", "title", item.Title)
		}

		if d.send(ctx, wecom.Text, payload) {
			sentIDs = append(sentIDs, item.ID)
		} else {
			logger.Error("item permanently undeliverable", "title", item.Title)
		}
	}
	return sentIDs
}

func (d *Dispatcher) send(ctx context.Context, msgType wecom.MsgType, payload string) bool {
	if err := d.sender.Send(ctx, msgType, payload); err != nil {
		metrics.Global.IncrementBatchesFailed()
		logger.Error("webhook send failed", "type", string(msgType), "error", err)
		return false
	}
	metrics.Global.IncrementBatchesSent()
	return true
}

func itemIDs(items []score.ScoredItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
