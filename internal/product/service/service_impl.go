package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/happybase/portal/internal/clock"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"github.com/happybase/portal/internal/product/domain"
	provisioningdomain "github.com/happybase/portal/internal/provisioning/domain"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Registrar domain.Registrar
	Recorder  provisioningdomain.Recorder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	registrar domain.Registrar
	recorder  provisioningdomain.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("product.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		registrar: p.Registrar,
		recorder:  p.Recorder,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	organization := strings.TrimSpace(req.OrganizationID)
	if organization == "" {
		return nil, domain.ErrInvalidOrganization
	}

	ctx = provisioningdomain.WithWorkflow(ctx, provisioningdomain.WorkflowProduct)
	ctx, _ = correlation.EnsureCorrelationID(ctx)

	reg, err := s.registrar.Register(ctx, domain.RegisterRequest{
		Name:              req.Name,
		Price:             req.Price,
		Interval:          req.Interval,
		MerchantID:        req.MerchantID,
		OrganizationID:    organization,
		PrivateContentURL: req.PrivateContentURL,
		CreatePaymentLink: req.CreatePaymentLink,
		RedirectURL:       req.RedirectURL,
	})
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:            reg.ProductID,
		Name:          reg.Name,
		Price:         reg.Amount,
		Organization:  organization,
		Merchant:      reg.MerchantID,
		Interval:      reg.Interval,
		PrivateURL:    reg.PrivateURL,
		StripePriceID: reg.PriceID,
		PaymentLink:   reg.PaymentLinkURL,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, p); err != nil {
		obslogger.WithContext(ctx, s.log).Error("orphaned provider objects: product row not persisted",
			zap.String("organization", organization),
			zap.String("product_id", reg.ProductID),
			zap.String("price_id", reg.PriceID),
			zap.String("payment_link_id", reg.PaymentLinkID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: insert product: %v", domain.ErrPersistence, err)
	}

	if s.recorder != nil {
		s.recorder.Mark(ctx, provisioningdomain.Marker{
			Workflow:     provisioningdomain.WorkflowProduct,
			Organization: organization,
			Step:         provisioningdomain.StepProductPersisted,
			ExternalID:   p.ID,
		})
	}

	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, organization string) ([]domain.Response, error) {
	organization = strings.TrimSpace(organization)
	if organization == "" {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.ListByOrganization(ctx, s.db, organization)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, organization, id string) (*domain.Response, error) {
	organization = strings.TrimSpace(organization)
	if organization == "" {
		return nil, domain.ErrInvalidOrganization
	}

	item, err := s.repo.FindByID(ctx, s.db, organization, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		DisplayPrice:  domain.FormatPrice(p.Price) + p.Interval.Suffix(),
		Interval:      p.Interval,
		Organization:  p.Organization,
		Merchant:      p.Merchant,
		PrivateURL:    p.PrivateURL,
		StripePriceID: p.StripePriceID,
		PaymentLink:   p.PaymentLink,
		CreatedAt:     p.CreatedAt,
	}
}
