package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	return r
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("expected a generated X-Request-ID")
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) {
		rid, _ := c.Get("requestID")
		c.String(http.StatusOK, "%v", rid)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("header = %q", got)
	}
	if w.Body.String() != "abc-123" {
		t.Fatalf("context value = %q", w.Body.String())
	}
}

func TestRecovery_PanicBecomesJSON500(t *testing.T) {
	r := newEngine()
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLoggerFrom_FallbackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if lg := LoggerFrom(c); lg == nil {
		t.Fatalf("LoggerFrom must never return nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("max<=0 must disable truncation, got %q", got)
	}
}

func TestAsString(t *testing.T) {
	if got := asString("x"); got != "x" {
		t.Fatalf("got %q", got)
	}
	if got := asString(42); got != "" {
		t.Fatalf("non-strings must map to empty, got %q", got)
	}
	if got := asString(nil); got != "" {
		t.Fatalf("nil must map to empty, got %q", got)
	}
}
