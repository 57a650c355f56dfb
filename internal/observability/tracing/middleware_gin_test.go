package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/happybase/portal/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	router := gin.New()
	router.Use(GinMiddleware())
	return router, recorder
}

func TestGinMiddlewareRecordsOrgAndActor(t *testing.T) {
	router, recorder := newRecordingRouter(t)
	withSession := func(c *gin.Context) {
		ctx := obscontext.WithOrgID(c.Request.Context(), "org_1")
		ctx = obscontext.WithActor(ctx, "user", "user_1")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
	router.POST("/api/portals", withSession, func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/portals", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "HTTP POST /api/portals" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
	attrs := attributeMap(spans[0].Attributes())
	if attrs["happybase.org_id"] != "org_1" {
		t.Fatalf("expected org attribute, got %v", attrs)
	}
	if attrs["happybase.actor_id"] != "user_1" {
		t.Fatalf("expected actor attribute, got %v", attrs)
	}
}

func TestGinMiddlewareTagsWebhookProvider(t *testing.T) {
	router, recorder := newRecordingRouter(t)
	router.POST("/api/webhooks/stripe_connect", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe_connect", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	attrs := attributeMap(spans[0].Attributes())
	if attrs["happybase.webhook.provider"] != "stripe_connect" {
		t.Fatalf("expected webhook provider attribute, got %v", attrs)
	}
}

func TestGinMiddlewareSkipsProbes(t *testing.T) {
	router, recorder := newRecordingRouter(t)
	router.GET("/health/ready", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if got := len(recorder.Ended()); got != 0 {
		t.Fatalf("expected no spans for health checks, got %d", got)
	}
}

func attributeMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
