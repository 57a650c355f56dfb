package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/happybase/portal/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const webhookRoutePrefix = "/api/webhooks/"

// untracedPrefixes are scraped by infrastructure on a fixed interval.
var untracedPrefixes = []string{"/health", "/metrics"}

// GinMiddleware starts a server span per request. Organization and actor
// attributes are read back from the request context after the handler chain
// runs, since the session middleware attaches them downstream.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("happybase/http")
	return func(c *gin.Context) {
		if skipTracing(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		span.SetAttributes(SafeAttributes(requestAttributes(c, route, status, time.Since(start))...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

func requestAttributes(c *gin.Context, route string, status int, elapsed time.Duration) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
		attribute.Int64("http.server_duration_ms", elapsed.Milliseconds()),
	}

	ctx := c.Request.Context()
	if orgID := obscontext.OrgIDFromContext(ctx); orgID != "" {
		attrs = append(attrs, attribute.String("happybase.org_id", orgID))
	}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		attrs = append(attrs,
			attribute.String("happybase.actor_type", actorType),
			attribute.String("happybase.actor_id", actorID),
		)
	}
	if provider := webhookProvider(route); provider != "" {
		attrs = append(attrs, attribute.String("happybase.webhook.provider", provider))
	}
	if portalID := c.Param("id"); portalID != "" && strings.Contains(route, "portal") {
		attrs = append(attrs, attribute.String("happybase.portal_id", portalID))
	}
	return attrs
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func skipTracing(path string) bool {
	for _, prefix := range untracedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// webhookProvider returns the trailing route segment for webhook routes, such
// as "stripe_connect", and an empty string otherwise.
func webhookProvider(route string) string {
	if !strings.HasPrefix(route, webhookRoutePrefix) {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(route, webhookRoutePrefix), "/")
}
