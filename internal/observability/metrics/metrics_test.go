package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "org_123"),
		attribute.String("customer_email", "a@b.co"),
		attribute.String("event_type", "invoice.paid"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "event_type" {
		t.Fatalf("expected event_type to be retained, got %s", attrs[0].Key)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordMerchantCreated(ctx, "created")
	m.RecordProductRegistered(ctx, "monthly")
	m.RecordPortalBroadcast(ctx, "ok")
	m.RecordWebhookEvent(ctx, "stripe", "invoice.paid")
	m.RecordProviderError(ctx, "stripe", "create_price")
	m.RecordOrphanedObject(ctx, "price.created")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "happybase"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordWebhookEvent(context.Background(), "clerk", "user.created")
}
