package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/assistec/wpp-os-gateway/internal/domain"
)

type fakePipeline struct {
	events []domain.WebhookEvent
}

func (f *fakePipeline) Handle(_ context.Context, ev domain.WebhookEvent) {
	f.events = append(f.events, ev)
}

func newRouter(p EventPipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(p)
	r := gin.New()
	r.POST("/webhook", h.Webhook)
	r.GET("/health", h.Health)
	return r
}

func TestWebhook_ForwardsEvent(t *testing.T) {
	p := &fakePipeline{}
	r := newRouter(p)

	body := `{"Type":"receveid_message","Body":{"Text":"hello","Info":{"SenderJid":"5511999@s.whatsapp.net"}}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(p.events) != 1 {
		t.Fatalf("pipeline received %d events", len(p.events))
	}
	got := p.events[0]
	if got.Type != domain.EventTypeReceivedMessage || got.Body.Text != "hello" {
		t.Fatalf("event = %+v", got)
	}
	if got.Body.Info.SenderJid != "5511999@s.whatsapp.net" {
		t.Fatalf("sender = %q", got.Body.Info.SenderJid)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	if len(resp) != 0 {
		t.Fatalf("response must be an empty object, got %v", resp)
	}
}

func TestWebhook_UndecodableBodyStillAcknowledges(t *testing.T) {
	p := &fakePipeline{}
	r := newRouter(p)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, the webhook must always answer 200", w.Code)
	}
	if len(p.events) != 0 {
		t.Fatalf("undecodable body must not reach the pipeline")
	}
}

func TestWebhook_EmptyBody(t *testing.T) {
	p := &fakePipeline{}
	r := newRouter(p)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(""))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakePipeline{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("body = %v", resp)
	}
}
