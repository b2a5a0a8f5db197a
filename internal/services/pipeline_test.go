package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/assistec/wpp-os-gateway/internal/buffer"
	"github.com/assistec/wpp-os-gateway/internal/domain"
)

// ---------- fakes ----------

type sentMsg struct {
	number  string
	message string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []sentMsg
}

func (f *fakeNotifier) Send(_ context.Context, number, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMsg{number: number, message: message})
	return nil
}

func (f *fakeNotifier) last(t *testing.T) sentMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sends) == 0 {
		t.Fatalf("no notification sent")
	}
	return f.sends[len(f.sends)-1]
}

type fakeOrders struct {
	mu        sync.Mutex
	err       error
	submitted []domain.OrderPayload
}

func (f *fakeOrders) Submit(_ context.Context, p domain.OrderPayload) (*domain.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, p)
	ext := "OS-1"
	return &domain.ServiceOrder{ID: 1, Status: domain.StatusOpen, ExternalID: &ext}, nil
}

func startEvent() domain.WebhookEvent {
	return domain.WebhookEvent{
		Type: domain.EventTypeReceivedMessage,
		Body: domain.WebhookBody{
			Text: "*Ordem de servico*\nCS123\nR45",
			Info: domain.WebhookInfo{
				PushName:  "Ana",
				SenderJid: "5511999@s.whatsapp.net",
			},
		},
	}
}

func continuationEvent(text string) domain.WebhookEvent {
	return domain.WebhookEvent{
		Type: domain.EventTypeReceivedMessage,
		Body: domain.WebhookBody{
			Text: text,
			Info: domain.WebhookInfo{
				SenderJid: "5511999@s.whatsapp.net",
			},
		},
	}
}

// ---------- Handle() ----------

func TestPipeline_StartBuffersAndPrompts(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), startEvent())

	if buf.Len() != 1 {
		t.Fatalf("expected one buffered entry, got %d", buf.Len())
	}
	got := notify.last(t)
	if got.number != "5511999" {
		t.Fatalf("prompt sent to wrong number %q", got.number)
	}
	if !strings.Contains(got.message, "Olá Ana") || !strings.Contains(got.message, "*ESCREVA*") {
		t.Fatalf("unexpected prompt: %q", got.message)
	}
	if len(orders.submitted) != 0 {
		t.Fatalf("start must not submit")
	}
}

func TestPipeline_ContinuationCompletesSubmission(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), startEvent())
	p.Handle(context.Background(), continuationEvent("Router down"))

	if len(orders.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(orders.submitted))
	}
	got := orders.submitted[0]
	if got.CSID != "CS123" || got.NumRota != "R45" {
		t.Fatalf("wrong payload submitted: %+v", got)
	}
	if got.DescricaoProblema == nil || *got.DescricaoProblema != "Router down" {
		t.Fatalf("description not attached: %+v", got.DescricaoProblema)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer must be empty after completion, got %d", buf.Len())
	}
	if notify.last(t).message != msgSuccess {
		t.Fatalf("expected success message, got %q", notify.last(t).message)
	}
}

func TestPipeline_TwoStartsOneContinuation(t *testing.T) {
	// Property: only the oldest start completes; the second stays buffered.
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	first := startEvent()
	second := startEvent()
	second.Body.Text = "*Ordem de servico*\nCS999\nR46"

	p.Handle(context.Background(), first)
	p.Handle(context.Background(), second)
	p.Handle(context.Background(), continuationEvent("Router down"))

	if len(orders.submitted) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(orders.submitted))
	}
	if orders.submitted[0].CSID != "CS123" {
		t.Fatalf("oldest start must win, got cs_id=%s", orders.submitted[0].CSID)
	}
	if buf.Len() != 1 {
		t.Fatalf("second start must remain buffered, got %d", buf.Len())
	}
}

func TestPipeline_ExpiredStartIsNeverMatched(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	now := time.Now()
	buf.Now = func() time.Time { return now }

	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), startEvent())

	// Eleven minutes pass and the follow-up is the first webhook to arrive;
	// nothing swept the buffer in between.
	buf.Now = func() time.Time { return now.Add(11 * time.Minute) }
	p.Handle(context.Background(), continuationEvent("Router down"))

	if len(orders.submitted) != 0 {
		t.Fatalf("expired start must not complete, got %d submissions", len(orders.submitted))
	}
	if notify.last(t).message == msgSuccess {
		t.Fatalf("no confirmation may be sent for an expired start")
	}
}

func TestPipeline_DuplicateNotifiesPendingExists(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{err: ErrDuplicateOrder}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), startEvent())
	p.Handle(context.Background(), continuationEvent("Router down"))

	if notify.last(t).message != msgDuplicate {
		t.Fatalf("expected duplicate message, got %q", notify.last(t).message)
	}
}

func TestPipeline_SubmissionFailureNotifiesRetryLater(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{err: ErrSubmissionFailed}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), startEvent())
	p.Handle(context.Background(), continuationEvent("Router down"))

	if notify.last(t).message != msgFailure {
		t.Fatalf("expected failure message, got %q", notify.last(t).message)
	}
	// The buffered entry was consumed; the sender must restart the flow.
	if buf.Len() != 0 {
		t.Fatalf("buffer must be empty after a failed completion")
	}
}

func TestPipeline_MalformedTriggerIsDropped(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	ev := startEvent()
	ev.Body.Text = "*Ordem de servico*\nCS123" // missing route line
	p.Handle(context.Background(), ev)

	if buf.Len() != 0 {
		t.Fatalf("malformed trigger must not buffer")
	}
	if len(notify.sends) != 0 {
		t.Fatalf("malformed trigger must not notify")
	}
}

func TestPipeline_IrrelevantEventIsNoOp(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), domain.WebhookEvent{Type: "message_ack"})

	if buf.Len() != 0 || len(notify.sends) != 0 || len(orders.submitted) != 0 {
		t.Fatalf("irrelevant event must have no effect")
	}
}

func TestPipeline_FreeTextWithEmptyBufferIsNoOp(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	p.Handle(context.Background(), continuationEvent("hello there"))

	if len(orders.submitted) != 0 || len(notify.sends) != 0 {
		t.Fatalf("chatter with empty buffer must be ignored")
	}
}

func TestPipeline_PrefersRemoteJidForNotification(t *testing.T) {
	buf := buffer.New(10 * time.Minute)
	notify := &fakeNotifier{}
	orders := &fakeOrders{}
	p := NewPipeline(buf, orders, notify)

	ev := startEvent()
	ev.Body.Info.RemoteJid = "5500111@s.whatsapp.net"
	p.Handle(context.Background(), ev)

	if got := notify.last(t).number; got != "5500111" {
		t.Fatalf("expected RemoteJid number, got %q", got)
	}
}
