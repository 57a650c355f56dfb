package logger

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/happybase/portal/internal/observability/context"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// WebhookEventTypeKey is the gin context key webhook handlers use to
	// expose the provider event type to the request log line.
	WebhookEventTypeKey = "webhook_event_type"

	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
	requestMessage  = "http_request"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware attaches request and correlation ids to the request context
// and writes one "http_request" line per request once the chain completes.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(requestContext(c))

		c.Next()

		entry := requestEntry{
			route:     c.FullPath(),
			status:    c.Writer.Status(),
			eventType: strings.TrimSpace(c.GetString(WebhookEventTypeKey)),
		}
		if entry.route == "" {
			entry.route = "unknown"
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			entry.failed = true
			if cfg.ErrorClassifier != nil {
				entry.errType, entry.errCode = cfg.ErrorClassifier(lastErr.Err)
			}
		}

		fields := append(entry.fields(),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		)
		if entry.failed && cfg.Debug {
			fields = append(fields, zap.Stack("stack"))
		}

		if ce := FromContext(c.Request.Context()).Check(entry.level(), requestMessage); ce != nil {
			ce.Write(fields...)
		}
	}
}

// requestContext resolves the request id, preferring an inbound header, and
// carries an upstream correlation id through when one is sent.
func requestContext(c *gin.Context) context.Context {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = strings.TrimSpace(c.GetString(requestIDKey))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header(requestIDHeader, requestID)

	ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
	if cid := strings.TrimSpace(c.GetHeader(correlation.Header)); cid != "" {
		ctx = correlation.ContextWithCorrelationID(ctx, cid)
		c.Header(correlation.Header, cid)
	}
	return ctx
}

type requestEntry struct {
	route     string
	status    int
	eventType string
	failed    bool
	errType   string
	errCode   string
}

func (e requestEntry) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("route", e.route),
		zap.Int("status", e.status),
	}
	if e.eventType != "" {
		fields = append(fields, zap.String("webhook_event_type", e.eventType))
	}
	if e.failed {
		fields = append(fields,
			zap.String("error_type", e.errType),
			zap.String("error_code", e.errCode),
		)
	}
	return fields
}

// level keeps health checks quiet and demotes expected client-side noise:
// forged webhook signatures and rate-limited callers log at warn.
func (e requestEntry) level() zapcore.Level {
	switch {
	case e.route == "/metrics" || strings.HasPrefix(e.route, "/health"):
		return zapcore.DebugLevel
	case e.status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case e.status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	case e.status == http.StatusBadRequest && e.errType == "invalid_signature" &&
		strings.HasPrefix(e.route, "/api/webhooks/"):
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
