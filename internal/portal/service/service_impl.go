package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/happybase/portal/internal/analytics"
	appdomain "github.com/happybase/portal/internal/app/domain"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/config"
	merchantdomain "github.com/happybase/portal/internal/merchant/domain"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"github.com/happybase/portal/internal/observability/metrics"
	"github.com/happybase/portal/internal/portal/domain"
	productdomain "github.com/happybase/portal/internal/product/domain"
	provisioningdomain "github.com/happybase/portal/internal/provisioning/domain"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Apps      appdomain.Service
	Merchants merchantdomain.Service
	Products  productdomain.Service
	Sink      analytics.Sink
	Recorder  provisioningdomain.Recorder `optional:"true"`
	Metrics   *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	apps      appdomain.Service
	merchants merchantdomain.Service
	products  productdomain.Service
	sink      analytics.Sink
	recorder  provisioningdomain.Recorder
	metrics   *metrics.Metrics

	baseURL      string
	issueTokens  bool
	tokenFactory func() (string, error)
}

func New(p Params) domain.Service {
	sink := p.Sink
	if sink == nil {
		sink = analytics.NoopSink{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("portal.service"),
		clock:        p.Clock,
		repo:         p.Repo,
		apps:         p.Apps,
		merchants:    p.Merchants,
		products:     p.Products,
		sink:         sink,
		recorder:     p.Recorder,
		metrics:      p.Metrics,
		baseURL:      strings.TrimRight(p.Config.PublicBaseURL, "/"),
		issueTokens:  p.Config.Portal.IssueAccessTokens,
		tokenFactory: newAccessToken,
	}
}

// CreatePortal persists the portal row for an owned app. Provider objects
// referenced by the request are never rolled back on failure.
func (s *Service) CreatePortal(ctx context.Context, req domain.CreateRequest) (*domain.Portal, error) {
	if _, err := s.ownedApp(ctx, req.CreatorID, req.AppID); err != nil {
		return nil, err
	}

	p := &domain.Portal{
		ID:            req.AppID,
		CreatorID:     strings.TrimSpace(req.CreatorID),
		URL:           strings.TrimSpace(req.SourceURL),
		ProductID:     req.Product.ID,
		Merchant:      req.Product.Merchant,
		Price:         req.Product.Price,
		Interval:      req.Product.Interval,
		StripePriceID: req.Product.StripePriceID,
		PaymentLink:   req.Product.PaymentLink,
		CreatedAt:     s.clock.Now(),
	}
	if req.AccessToken != "" {
		token := req.AccessToken
		p.AccessToken = &token
	}
	if req.RedirectURL != "" {
		redirect := req.RedirectURL
		p.RedirectURL = &redirect
	}

	if err := s.repo.Insert(ctx, s.db, p); err != nil {
		obslogger.WithContext(ctx, s.log).Error("orphaned provider objects: portal row not persisted",
			zap.Int64("app_id", req.AppID),
			zap.String("product_id", req.Product.ID),
			zap.String("price_id", req.Product.StripePriceID),
			zap.String("payment_link", req.Product.PaymentLink),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return p, nil
}

func (s *Service) Broadcast(ctx context.Context, req domain.BroadcastRequest) (*domain.BroadcastResult, error) {
	appID, err := parseID(req.AppID)
	if err != nil {
		return nil, err
	}

	app, err := s.ownedApp(ctx, req.CreatorID, appID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, appID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.RecordPortalBroadcast(ctx, "duplicate")
		return nil, domain.ErrAlreadyBroadcast
	}

	merchant, err := s.merchants.GetByOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	ctx = provisioningdomain.WithWorkflow(ctx, provisioningdomain.WorkflowBroadcast)
	ctx, _ = correlation.EnsureCorrelationID(ctx)
	log := obslogger.WithContext(ctx, s.log).With(
		zap.Int64("app_id", appID),
		zap.String("organization", req.OrganizationID),
	)

	publicLink := s.publicLink(appID)
	redirect := publicLink
	var token string
	if s.issueTokens {
		token, err = s.tokenFactory()
		if err != nil {
			return nil, fmt.Errorf("generate access token: %w", err)
		}
		redirect = publicLink + "/access/" + token
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = app.Name
	}

	product, err := s.products.Create(ctx, productdomain.CreateRequest{
		Name:              name,
		Price:             req.Price,
		Interval:          req.Interval,
		MerchantID:        merchant.ID,
		OrganizationID:    req.OrganizationID,
		PrivateContentURL: app.URL,
		CreatePaymentLink: true,
		RedirectURL:       redirect,
	})
	if err != nil {
		s.metrics.RecordPortalBroadcast(ctx, "failed")
		return nil, err
	}

	createReq := domain.CreateRequest{
		AppID:     appID,
		CreatorID: req.CreatorID,
		SourceURL: app.URL,
		Product:   *product,
	}
	if token != "" {
		createReq.AccessToken = token
		createReq.RedirectURL = redirect
	}
	p, err := s.CreatePortal(ctx, createReq)
	if err != nil {
		s.metrics.RecordPortalBroadcast(ctx, "failed")
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.Mark(ctx, provisioningdomain.Marker{
			Workflow:     provisioningdomain.WorkflowBroadcast,
			Organization: req.OrganizationID,
			Step:         provisioningdomain.StepPortalPersisted,
			ExternalID:   strconv.FormatInt(p.ID, 10),
		})
	}

	s.sink.Track(ctx, analytics.Track{
		UserID: req.CreatorID,
		Event:  analytics.EventPortalBroadcast,
		Properties: map[string]any{
			"portal_id": strconv.FormatInt(p.ID, 10),
			"product":   p.ProductID,
			"interval":  string(p.Interval),
			"price":     p.Price.StringFixed(2),
		},
	})
	s.metrics.RecordPortalBroadcast(ctx, "created")
	log.Info("portal broadcast", zap.String("product_id", p.ProductID))

	return &domain.BroadcastResult{
		Portal:     toResponse(p),
		PublicLink: publicLink,
	}, nil
}

func (s *Service) View(ctx context.Context, id string) (*domain.AccessView, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := toView(p)
	view.ShowCheckout = p.PaymentLink != ""
	return &view, nil
}

// Access is the post-checkout landing: the token must match the one minted
// for the portal. Any mismatch looks like an unknown portal.
func (s *Service) Access(ctx context.Context, id, token string) (*domain.AccessView, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tokenMatches(p.AccessToken, strings.TrimSpace(token)) {
		return nil, domain.ErrNotFound
	}
	view := toView(p)
	return &view, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Portal, error) {
	portalID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := s.repo.FindByID(ctx, s.db, portalID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Service) ownedApp(ctx context.Context, creatorID string, appID int64) (*appdomain.App, error) {
	app, err := s.apps.GetOwned(ctx, creatorID, appID)
	if err != nil {
		if errors.Is(err, appdomain.ErrNotFound) || errors.Is(err, appdomain.ErrInvalidCreator) {
			return nil, domain.ErrAppNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *Service) publicLink(appID int64) string {
	return s.baseURL + "/portal/" + strconv.FormatInt(appID, 10)
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id.Int64() <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func toView(p *domain.Portal) domain.AccessView {
	return domain.AccessView{
		ID:          strconv.FormatInt(p.ID, 10),
		SourceURL:   p.URL,
		PaymentLink: p.PaymentLink,
		Price:       productdomain.FormatPrice(p.Price),
		Suffix:      p.Interval.Suffix(),
		Interval:    p.Interval,
	}
}

func toResponse(p *domain.Portal) domain.Response {
	resp := domain.Response{
		ID:            strconv.FormatInt(p.ID, 10),
		CreatorID:     p.CreatorID,
		URL:           p.URL,
		ProductID:     p.ProductID,
		Merchant:      p.Merchant,
		Price:         p.Price,
		DisplayPrice:  productdomain.FormatPrice(p.Price) + p.Interval.Suffix(),
		Interval:      p.Interval,
		StripePriceID: p.StripePriceID,
		PaymentLink:   p.PaymentLink,
		CreatedAt:     p.CreatedAt,
	}
	if p.RedirectURL != nil {
		resp.RedirectURL = *p.RedirectURL
	}
	return resp
}
