package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/happybase/portal/internal/analytics"
	"github.com/happybase/portal/internal/config"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"github.com/happybase/portal/internal/observability/metrics"
	"github.com/happybase/portal/internal/webhook/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	Directory identitydomain.Directory
	Sink      analytics.Sink
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service verifies provider webhooks and dispatches them to the family visitors.
// Once a payload is verified, handler failures are logged and never surfaced
// to the provider.
type Service struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	clerkSecret   string
	stripeSecret  string
	connectSecret string

	identity domain.IdentityVisitor
	payments domain.PaymentsVisitor
	connect  domain.ConnectVisitor
}

func New(p Params) *Service {
	log := p.Log.Named("webhook.service")
	sink := p.Sink
	if sink == nil {
		sink = analytics.NoopSink{}
	}
	return &Service{
		log:           log,
		metrics:       p.Metrics,
		clerkSecret:   strings.TrimSpace(p.Config.Clerk.WebhookSecret),
		stripeSecret:  strings.TrimSpace(p.Config.Stripe.WebhookSecret),
		connectSecret: strings.TrimSpace(p.Config.Stripe.ConnectWebhookSecret),
		identity:      &identityHandler{log: log.Named("clerk"), sink: sink},
		payments:      &paymentsHandler{log: log.Named("stripe"), sink: sink, directory: p.Directory},
		connect:       &connectHandler{log: log.Named("stripe_connect")},
	}
}

func (s *Service) HandleIdentity(ctx context.Context, payload []byte, headers http.Header) error {
	if s.clerkSecret == "" {
		return domain.ErrNotConfigured
	}
	wh, err := svix.NewWebhook(s.clerkSecret)
	if err != nil {
		s.log.Error("invalid clerk webhook secret", zap.Error(err))
		return domain.ErrNotConfigured
	}
	if err := wh.Verify(payload, headers); err != nil {
		return domain.ErrInvalidSignature
	}

	evt, err := domain.ParseIdentityEvent(payload)
	if err != nil {
		s.undecodable(ctx, domain.ProviderClerk, "", err)
		return nil
	}
	s.dispatch(ctx, domain.ProviderClerk, evt.EventMeta(), func() error {
		return evt.Accept(ctx, s.identity)
	})
	return nil
}

func (s *Service) HandlePayments(ctx context.Context, payload []byte, headers http.Header) error {
	evt, err := s.construct(payload, headers, s.stripeSecret)
	if err != nil {
		return err
	}
	parsed, err := domain.ParsePaymentsEvent(evt)
	if err != nil {
		s.undecodable(ctx, domain.ProviderStripe, string(evt.Type), err)
		return nil
	}
	s.dispatch(ctx, domain.ProviderStripe, parsed.EventMeta(), func() error {
		return parsed.Accept(ctx, s.payments)
	})
	return nil
}

func (s *Service) HandleConnect(ctx context.Context, payload []byte, headers http.Header) error {
	evt, err := s.construct(payload, headers, s.connectSecret)
	if err != nil {
		return err
	}
	parsed, err := domain.ParseConnectEvent(evt)
	if err != nil {
		s.undecodable(ctx, domain.ProviderStripeConnect, string(evt.Type), err)
		return nil
	}
	s.dispatch(ctx, domain.ProviderStripeConnect, parsed.EventMeta(), func() error {
		return parsed.Accept(ctx, s.connect)
	})
	return nil
}

func (s *Service) construct(payload []byte, headers http.Header, secret string) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, domain.ErrNotConfigured
	}
	sig := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sig == "" {
		return stripe.Event{}, domain.ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, errors.Join(domain.ErrInvalidSignature, err)
	}
	return evt, nil
}

func (s *Service) dispatch(ctx context.Context, provider string, meta domain.Meta, handle func() error) {
	s.metrics.RecordWebhookEvent(ctx, provider, meta.Type)
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("provider", provider),
		zap.String("event_type", meta.Type),
		zap.String("event_id", meta.ID),
	)
	if err := handle(); err != nil {
		log.Error("webhook handler failed", zap.Error(err))
		return
	}
	log.Debug("webhook processed")
}

// undecodable acknowledges a verified event whose body could not be decoded.
// Rejecting it would only make the provider redeliver the same payload.
func (s *Service) undecodable(ctx context.Context, provider, eventType string, err error) {
	s.metrics.RecordWebhookEvent(ctx, provider, eventType)
	obslogger.WithContext(ctx, s.log).Warn("webhook payload not decodable",
		zap.String("provider", provider),
		zap.String("event_type", eventType),
		zap.Error(err),
	)
}
