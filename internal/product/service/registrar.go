package service

import (
	"context"
	"strings"

	"github.com/happybase/portal/internal/config"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"github.com/happybase/portal/internal/observability/metrics"
	providerdomain "github.com/happybase/portal/internal/paymentprovider/domain"
	"github.com/happybase/portal/internal/product/domain"
	provisioningdomain "github.com/happybase/portal/internal/provisioning/domain"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const providerName = "stripe"

type RegistrarParams struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Provider providerdomain.Provider
	Recorder provisioningdomain.Recorder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Registrar struct {
	log      *zap.Logger
	provider providerdomain.Provider
	recorder provisioningdomain.Recorder
	metrics  *metrics.Metrics
	currency string
}

func NewRegistrar(p RegistrarParams) domain.Registrar {
	currency := strings.ToLower(strings.TrimSpace(p.Config.Stripe.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Registrar{
		log:      p.Log.Named("product.registrar"),
		provider: p.Provider,
		recorder: p.Recorder,
		metrics:  p.Metrics,
		currency: currency,
	}
}

// Register creates the product, its recurring price and optionally a payment
// link on the merchant's connected account. Nothing is sent to the provider
// until the whole request validates.
func (r *Registrar) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error) {
	reg, err := validate(req)
	if err != nil {
		return nil, err
	}
	reg.Currency = r.currency

	ctx = provisioningdomain.WithWorkflow(ctx, provisioningdomain.WorkflowProduct)
	ctx, _ = correlation.EnsureCorrelationID(ctx)
	log := obslogger.WithContext(ctx, r.log).With(
		zap.String("merchant", reg.MerchantID),
		zap.String("interval", string(reg.Interval)),
	)

	product, err := r.provider.CreateProduct(ctx, providerdomain.ProductRequest{
		AccountID: reg.MerchantID,
		Name:      reg.Name,
	})
	if err != nil {
		r.metrics.RecordProviderError(ctx, providerName, "create_product")
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}
	reg.ProductID = product.ID
	r.mark(ctx, reg, provisioningdomain.StepProductCreated, product.ID)

	unit, count := reg.Interval.Recurring()
	price, err := r.provider.CreatePrice(ctx, providerdomain.PriceRequest{
		AccountID:     reg.MerchantID,
		ProductID:     product.ID,
		UnitAmount:    reg.UnitAmount,
		Currency:      r.currency,
		Unit:          unit,
		IntervalCount: count,
	})
	if err != nil {
		r.metrics.RecordProviderError(ctx, providerName, "create_price")
		log.Error("failed to create price", zap.String("product_id", product.ID), zap.Error(err))
		return nil, err
	}
	reg.PriceID = price.ID
	r.mark(ctx, reg, provisioningdomain.StepPriceCreated, price.ID)

	if req.CreatePaymentLink {
		link, err := r.provider.CreatePaymentLink(ctx, providerdomain.PaymentLinkRequest{
			AccountID:   reg.MerchantID,
			PriceID:     price.ID,
			RedirectURL: strings.TrimSpace(req.RedirectURL),
		})
		if err != nil {
			r.metrics.RecordProviderError(ctx, providerName, "create_payment_link")
			log.Error("failed to create payment link", zap.String("price_id", price.ID), zap.Error(err))
			return nil, err
		}
		reg.PaymentLinkID = link.ID
		reg.PaymentLinkURL = link.URL
		r.mark(ctx, reg, provisioningdomain.StepPaymentLinkCreated, link.ID)
	}

	r.metrics.RecordProductRegistered(ctx, string(reg.Interval))
	log.Info("product registered",
		zap.String("product_id", reg.ProductID),
		zap.String("price_id", reg.PriceID),
		zap.Int64("unit_amount", reg.UnitAmount),
	)
	return reg, nil
}

func (r *Registrar) mark(ctx context.Context, reg *domain.Registration, step, externalID string) {
	if r.recorder == nil {
		return
	}
	r.recorder.Mark(ctx, provisioningdomain.Marker{
		Workflow:     provisioningdomain.WorkflowProduct,
		Organization: reg.OrganizationID,
		Step:         step,
		ExternalID:   externalID,
		Metadata:     map[string]any{"merchant": reg.MerchantID},
	})
}

func validate(req domain.RegisterRequest) (*domain.Registration, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	amount, err := domain.ParseAmount(req.Price)
	if err != nil {
		return nil, err
	}
	interval, err := domain.ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	merchantID := strings.TrimSpace(req.MerchantID)
	if merchantID == "" {
		return nil, domain.ErrInvalidMerchant
	}

	return &domain.Registration{
		Name:           name,
		Amount:         amount,
		UnitAmount:     domain.Cents(amount),
		Interval:       interval,
		MerchantID:     merchantID,
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		PrivateURL:     strings.TrimSpace(req.PrivateContentURL),
	}, nil
}
