package message

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/score"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/wecom"
)

type fakeSender struct {
	calls []sentCall
	fail  func(call int, msgType wecom.MsgType, content string) error
}

type sentCall struct {
	msgType wecom.MsgType
	content string
}

func (f *fakeSender) Send(_ context.Context, msgType wecom.MsgType, content string) error {
	f.calls = append(f.calls, sentCall{msgType, content})
	if f.fail != nil {
		return f.fail(len(f.calls), msgType, content)
	}
	return nil
}

func newTestDispatcher(s Sender, batchSize, byteLimit int) *Dispatcher {
	d := NewDispatcher(s, batchSize, byteLimit, 0)
	d.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestDispatchMarkdownWhenItFits(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, 10, 4000)

	items := []score.ScoredItem{sampleItem("a", 80), sampleItem("b", 40)}
	sent := d.Dispatch(context.Background(), items)

	if len(sender.calls) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.calls))
	}
	if sender.calls[0].msgType != wecom.Markdown {
		t.Errorf("msgtype = %q, want markdown", sender.calls[0].msgType)
	}
	if len(sent) != 2 || sent[0] != "a" || sent[1] != "b" {
		t.Errorf("delivered IDs = %v", sent)
	}
}

func TestDispatchDegradesToTextWhenMarkdownOverBudget(t *testing.T) {
	sender := &fakeSender{}

	// markdown carries heavy per-item decoration that plain text drops, so a
	// budget between the two renders exercises exactly one ladder step
	items := []score.ScoredItem{sampleItem("a", 80), sampleItem("b", 40)}
	md := len(FormatMarkdown(items, time.Now()))
	txt := len(FormatText(items, time.Now()))
	if txt >= md {
		t.Fatalf("fixture broken: text render (%d) not smaller than markdown (%d)", txt, md)
	}

	d := newTestDispatcher(sender, 10, md-1)
	sent := d.Dispatch(context.Background(), items)

	if len(sender.calls) != 1 || sender.calls[0].msgType != wecom.Text {
		t.Fatalf("calls = %+v, want one text send", sender.calls)
	}
	if len(sent) != 2 {
		t.Errorf("delivered %d items, want 2", len(sent))
	}
}

func TestDispatchSplitsWhenBatchRendersOverBudget(t *testing.T) {
	sender := &fakeSender{}
	items := []score.ScoredItem{sampleItem("a", 80), sampleItem("b", 40)}
	txt := len(FormatText(items, time.Now()))

	d := newTestDispatcher(sender, 10, txt-1)
	sent := d.Dispatch(context.Background(), items)

	if len(sender.calls) != 2 {
		t.Fatalf("got %d sends, want one per item", len(sender.calls))
	}
	for _, c := range sender.calls {
		if c.msgType != wecom.Text {
			t.Errorf("split send used %q, want text", c.msgType)
		}
	}
	if len(sent) != 2 {
		t.Errorf("delivered %d items, want 2", len(sent))
	}
}

func TestDispatchSplitsAfterMarkdownSendFailure(t *testing.T) {
	sender := &fakeSender{
		fail: func(call int, msgType wecom.MsgType, _ string) error {
			if msgType == wecom.Markdown {
				return errors.New("webhook 500")
			}
			return nil
		},
	}
	d := newTestDispatcher(sender, 10, 4000)

	items := []score.ScoredItem{sampleItem("a", 80), sampleItem("b", 40)}
	sent := d.Dispatch(context.Background(), items)

	// one failed markdown attempt, then one text message per item
	if len(sender.calls) != 3 {
		t.Fatalf("got %d sends, want 3", len(sender.calls))
	}
	if len(sent) != 2 {
		t.Errorf("delivered %d items after fallback, want 2", len(sent))
	}
}

func TestOversizedItemTruncatedNotDropped(t *testing.T) {
	sender := &fakeSender{}
	limit := 200

	big := sampleItem("big", 80)
	big.SummaryZH = ""
	big.Summary = strings.Repeat("regulation update data point alpha beta ", 60)
	small := sampleItem("small", 40)

	d := newTestDispatcher(sender, 10, limit)
	sent := d.Dispatch(context.Background(), []score.ScoredItem{big, small})

	if len(sent) != 2 {
		t.Fatalf("delivered IDs = %v, want both items", sent)
	}
	for _, c := range sender.calls {
		if len(c.content) > limit {
			t.Errorf("payload of %d bytes exceeds %d byte budget", len(c.content), limit)
		}
		if c.content == "" {
			t.Error("empty payload sent")
		}
	}
}

func TestFailedItemDoesNotBlockRest(t *testing.T) {
	sender := &fakeSender{
		fail: func(_ int, _ wecom.MsgType, content string) error {
			if strings.Contains(content, "example.org/bad") {
				return errors.New("rejected")
			}
			return nil
		},
	}
	items := []score.ScoredItem{sampleItem("bad", 80), sampleItem("ok", 40)}
	txt := len(FormatText(items, time.Now()))

	d := newTestDispatcher(sender, 10, txt-1)
	sent := d.Dispatch(context.Background(), items)

	if len(sent) != 1 || sent[0] != "ok" {
		t.Errorf("delivered IDs = %v, want only the deliverable item", sent)
	}
}

func TestDispatchBatchesByConfiguredSize(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, 2, 100000)

	items := []score.ScoredItem{
		sampleItem("a", 80), sampleItem("b", 70),
		sampleItem("c", 60), sampleItem("d", 50),
		sampleItem("e", 40),
	}
	sent := d.Dispatch(context.Background(), items)

	if len(sender.calls) != 3 {
		t.Fatalf("got %d batch sends, want 3", len(sender.calls))
	}
	if len(sent) != 5 {
		t.Errorf("delivered %d items, want 5", len(sent))
	}
}

func TestDispatchEmpty(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, 10, 4000)
	if sent := d.Dispatch(context.Background(), nil); sent != nil {
		t.Errorf("Dispatch(nil) = %v, want nil", sent)
	}
	if len(sender.calls) != 0 {
		t.Errorf("sent %d messages for empty input", len(sender.calls))
	}
}
