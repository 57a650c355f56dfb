package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/happybase/portal/internal/analytics"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/config"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/lock"
	"github.com/happybase/portal/internal/merchant/domain"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"github.com/happybase/portal/internal/observability/metrics"
	providerdomain "github.com/happybase/portal/internal/paymentprovider/domain"
	provisioningdomain "github.com/happybase/portal/internal/provisioning/domain"
	"github.com/happybase/portal/pkg/db"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockTTL             = 30 * time.Second
	defaultPollAttempts = 3
	defaultPollInterval = 200 * time.Millisecond
)

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Provider  providerdomain.Provider
	Directory identitydomain.Directory
	Sink      analytics.Sink
	Locker    domain.Locker               `optional:"true"`
	Recorder  provisioningdomain.Recorder `optional:"true"`
	Metrics   *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	provider  providerdomain.Provider
	directory identitydomain.Directory
	sink      analytics.Sink
	locker    domain.Locker
	recorder  provisioningdomain.Recorder
	metrics   *metrics.Metrics

	baseURL        string
	accountCountry string
	pollAttempts   int
	pollInterval   time.Duration
}

func New(p Params) domain.Service {
	country := strings.TrimSpace(p.Config.Stripe.AccountCountry)
	if country == "" {
		country = "US"
	}
	sink := p.Sink
	if sink == nil {
		sink = analytics.NoopSink{}
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("merchant.service"),
		clock:          p.Clock,
		repo:           p.Repo,
		provider:       p.Provider,
		directory:      p.Directory,
		sink:           sink,
		locker:         p.Locker,
		recorder:       p.Recorder,
		metrics:        p.Metrics,
		baseURL:        strings.TrimRight(p.Config.PublicBaseURL, "/"),
		accountCountry: country,
		pollAttempts:   defaultPollAttempts,
		pollInterval:   defaultPollInterval,
	}
}

func (s *Service) EnsureMerchant(ctx context.Context, req domain.EnsureRequest) (*domain.EnsureResult, error) {
	orgID := strings.TrimSpace(req.OrganizationID)
	if orgID == "" {
		return nil, domain.ErrInvalidOrganization
	}

	existing, err := s.lookup(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.RecordMerchantCreated(ctx, "existing")
		return &domain.EnsureResult{MerchantID: existing.ID, OnboardingLink: existing.OnboardingLink}, nil
	}

	if !req.Admin {
		return nil, domain.ErrPermission
	}

	ctx = provisioningdomain.WithWorkflow(ctx, provisioningdomain.WorkflowMerchant)
	ctx, _ = correlation.EnsureCorrelationID(ctx)
	log := obslogger.WithContext(ctx, s.log).With(zap.String("organization", orgID))

	release, existing, err := s.acquire(ctx, orgID, log)
	if err != nil {
		return nil, err
	}
	defer release()
	if existing != nil {
		s.metrics.RecordMerchantCreated(ctx, "existing")
		return &domain.EnsureResult{MerchantID: existing.ID, OnboardingLink: existing.OnboardingLink}, nil
	}

	creator, err := s.directory.GetUser(ctx, req.UserID)
	if err != nil {
		log.Error("failed to load creator profile", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: load creator: %v", domain.ErrLookup, err)
	}

	account, err := s.provider.CreateConnectedAccount(ctx, providerdomain.AccountRequest{
		Email:   creator.Email,
		Country: s.accountCountry,
	})
	if err != nil {
		s.metrics.RecordProviderError(ctx, "stripe", "create_account")
		s.metrics.RecordMerchantCreated(ctx, "failed")
		log.Error("failed to create connected account", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentAccount, err)
	}
	s.mark(ctx, orgID, provisioningdomain.StepAccountCreated, account.ID)

	link, err := s.onboardingLink(ctx, account.ID)
	if err != nil {
		s.metrics.RecordMerchantCreated(ctx, "failed")
		log.Error("failed to create onboarding link", zap.String("account_id", account.ID), zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	m := &domain.Merchant{
		ID:             account.ID,
		OrganizationID: orgID,
		FirstName:      creator.FirstName,
		LastName:       creator.LastName,
		Email:          creator.Email,
		OnboardingLink: link,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, m); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			log.Error("orphaned connected account: merchant row not persisted",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}

		winner, ferr := s.lookup(ctx, orgID)
		if ferr != nil {
			return nil, ferr
		}
		if winner == nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		log.Warn("orphaned connected account: lost concurrent merchant creation",
			zap.String("account_id", account.ID),
			zap.String("merchant_id", winner.ID),
		)
		s.metrics.RecordMerchantCreated(ctx, "raced")
		return &domain.EnsureResult{MerchantID: winner.ID, OnboardingLink: winner.OnboardingLink}, nil
	}
	s.mark(ctx, orgID, provisioningdomain.StepMerchantPersisted, m.ID)

	if err := s.directory.UpdateUserPublicMetadata(ctx, req.UserID, map[string]any{
		"organization_id": orgID,
		"onboarding_link": link,
	}); err != nil {
		log.Warn("failed to sync merchant to creator metadata", zap.String("user_id", req.UserID), zap.Error(err))
	}

	s.sink.Track(ctx, analytics.Track{
		UserID: req.UserID,
		Event:  analytics.EventMerchantCreated,
		Properties: map[string]any{
			"organization_id": orgID,
			"merchant_id":     m.ID,
		},
	})
	s.metrics.RecordMerchantCreated(ctx, "created")
	log.Info("merchant created", zap.String("merchant_id", m.ID))

	return &domain.EnsureResult{MerchantID: m.ID, OnboardingLink: link, Created: true}, nil
}

func (s *Service) RefreshOnboardingLink(ctx context.Context, orgID string) (string, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", domain.ErrInvalidOrganization
	}

	m, err := s.lookup(ctx, orgID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", domain.ErrNotFound
	}

	link, err := s.onboardingLink(ctx, m.ID)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("failed to refresh onboarding link",
			zap.String("organization", orgID),
			zap.String("merchant_id", m.ID),
			zap.Error(err),
		)
		return "", err
	}

	if err := s.repo.UpdateOnboardingLink(ctx, s.db, orgID, link, s.clock.Now()); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to store refreshed onboarding link",
			zap.String("organization", orgID),
			zap.Error(err),
		)
	}
	return link, nil
}

func (s *Service) GetByOrganization(ctx context.Context, orgID string) (*domain.Merchant, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, domain.ErrInvalidOrganization
	}
	m, err := s.lookup(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *Service) lookup(ctx context.Context, orgID string) (*domain.Merchant, error) {
	m, err := s.repo.FindByOrganization(ctx, s.db, orgID)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("failed to look up merchant",
			zap.String("organization", orgID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrLookup, err)
	}
	return m, nil
}

// acquire takes the per-organization creation lock. When another caller holds
// it, the row is polled briefly and returned once it appears. Without a lock
// backend the unique index on organization is the only guard.
func (s *Service) acquire(ctx context.Context, orgID string, log *zap.Logger) (func(), *domain.Merchant, error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil, nil
	}

	key := lock.MerchantKey(orgID)
	token, acquired, err := s.locker.TryLock(ctx, key, lockTTL)
	switch {
	case errors.Is(err, lock.ErrNotConfigured):
		return noop, nil, nil
	case err != nil:
		log.Warn("merchant lock unavailable, relying on unique index", zap.Error(err))
		return noop, nil, nil
	case acquired:
		release := func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn("failed to release merchant lock", zap.Error(err))
			}
		}
		// The previous holder may have finished between our lookup and the lock.
		existing, err := s.lookup(ctx, orgID)
		if err != nil {
			release()
			return noop, nil, err
		}
		return release, existing, nil
	}

	for i := 0; i < s.pollAttempts; i++ {
		select {
		case <-ctx.Done():
			return noop, nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
		existing, err := s.lookup(ctx, orgID)
		if err != nil {
			return noop, nil, err
		}
		if existing != nil {
			return noop, existing, nil
		}
	}
	return noop, nil, domain.ErrCreationInProgress
}

func (s *Service) onboardingLink(ctx context.Context, accountID string) (string, error) {
	link, err := s.provider.CreateOnboardingLink(ctx, providerdomain.OnboardingLinkRequest{
		AccountID:  accountID,
		RefreshURL: s.baseURL + "/api/connect_links/refresh",
		ReturnURL:  s.baseURL + "/home",
	})
	if err != nil {
		s.metrics.RecordProviderError(ctx, "stripe", "create_account_link")
		return "", fmt.Errorf("%w: %w", domain.ErrPaymentAccount, err)
	}
	return link.URL, nil
}

func (s *Service) mark(ctx context.Context, orgID, step, externalID string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Mark(ctx, provisioningdomain.Marker{
		Workflow:     provisioningdomain.WorkflowMerchant,
		Organization: orgID,
		Step:         step,
		ExternalID:   externalID,
	})
}
