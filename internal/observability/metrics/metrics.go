package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	merchantsCreated   metric.Int64Counter
	productsRegistered metric.Int64Counter
	portalsBroadcast   metric.Int64Counter
	webhookEvents      metric.Int64Counter
	providerErrors     metric.Int64Counter
	orphanedObjects    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "happybase"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	for name, dst := range map[string]*metric.Int64Counter{
		"happybase_merchants_created_total":         &m.merchantsCreated,
		"happybase_products_registered_total":       &m.productsRegistered,
		"happybase_portals_broadcast_total":         &m.portalsBroadcast,
		"happybase_webhook_events_total":            &m.webhookEvents,
		"happybase_provider_errors_total":           &m.providerErrors,
		"happybase_orphaned_provider_objects_total": &m.orphanedObjects,
	} {
		counter, err := meter.Int64Counter(name)
		if err != nil {
			return nil, err
		}
		*dst = counter
	}
	return m, nil
}

// RecordMerchantCreated counts connected accounts provisioned for organizations.
func (m *Metrics) RecordMerchantCreated(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.merchantsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProductRegistered counts product/price pairs created on connected accounts.
func (m *Metrics) RecordProductRegistered(ctx context.Context, interval string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("interval", strings.TrimSpace(interval)))
	m.productsRegistered.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPortalBroadcast counts broadcast attempts by outcome.
func (m *Metrics) RecordPortalBroadcast(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.portalsBroadcast.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWebhookEvent counts verified webhook deliveries.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProviderError counts failed calls to external providers.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("operation", strings.TrimSpace(operation)),
	)
	m.providerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrphanedObject counts provider objects left without a persisted owner.
func (m *Metrics) RecordOrphanedObject(ctx context.Context, step string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("step", strings.TrimSpace(step)))
	m.orphanedObjects.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"provider":    {},
	"event_type":  {},
	"operation":   {},
	"interval":    {},
	"outcome":     {},
	"step":        {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
