package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestGinMiddlewarePropagatesCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeGlobal(t)

	var seen string
	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.POST("/api/portals", func(c *gin.Context) {
		seen = correlation.ExtractCorrelationID(c.Request.Context())
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/portals", nil)
	req.Header.Set(correlation.Header, "wf-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if seen != "wf-42" {
		t.Fatalf("expected correlation id on context, got %q", seen)
	}
	if resp.Header().Get(correlation.Header) != "wf-42" {
		t.Fatalf("expected correlation header echoed")
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["correlation_id"]; got != "wf-42" {
		t.Fatalf("expected correlation_id field, got %v", got)
	}
}

func TestGinMiddlewareWebhookSignatureFailureLogsWarn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeGlobal(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "invalid_signature", "bad_signature" },
	}))
	router.POST("/api/webhooks/stripe", func(c *gin.Context) {
		c.Set(WebhookEventTypeKey, "checkout.session.completed")
		_ = c.Error(errors.New("signature mismatch"))
		c.Status(http.StatusBadRequest)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["webhook_event_type"] != "checkout.session.completed" {
		t.Fatalf("expected event type field, got %v", fields["webhook_event_type"])
	}
	if fields["error_type"] != "invalid_signature" {
		t.Fatalf("expected classified error, got %v", fields["error_type"])
	}
}

func TestGinMiddlewareProbesLogAtDebug(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeGlobal(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected a single debug health log, got %+v", entries)
	}
}

func TestRequestEntryLevel(t *testing.T) {
	cases := []struct {
		name  string
		entry requestEntry
		want  zapcore.Level
	}{
		{"ok", requestEntry{route: "/api/apps", status: http.StatusOK}, zapcore.InfoLevel},
		{"server error", requestEntry{route: "/api/portals", status: http.StatusInternalServerError}, zapcore.ErrorLevel},
		{"rate limited", requestEntry{route: "/api/portals", status: http.StatusTooManyRequests}, zapcore.WarnLevel},
		{"forged webhook", requestEntry{route: "/api/webhooks/clerk", status: http.StatusBadRequest, errType: "invalid_signature"}, zapcore.WarnLevel},
		{"bad request elsewhere", requestEntry{route: "/api/products", status: http.StatusBadRequest, errType: "validation_error"}, zapcore.InfoLevel},
		{"metrics scrape", requestEntry{route: "/metrics", status: http.StatusOK}, zapcore.DebugLevel},
	}
	for _, tc := range cases {
		if got := tc.entry.level(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestGinMiddlewareKeepsInboundRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observeGlobal(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.GET("/api/apps", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	req.Header.Set("X-Request-Id", "req-7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("X-Request-Id"); got != "req-7" {
		t.Fatalf("expected inbound request id, got %q", got)
	}
}
