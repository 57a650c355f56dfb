package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	EnsureMerchant(ctx context.Context, req EnsureRequest) (*EnsureResult, error)
	RefreshOnboardingLink(ctx context.Context, orgID string) (string, error)
	GetByOrganization(ctx context.Context, orgID string) (*Merchant, error)
}

// Locker serializes merchant creation per organization.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type EnsureRequest struct {
	OrganizationID string
	UserID         string
	Admin          bool
}

type EnsureResult struct {
	MerchantID     string `json:"id"`
	OnboardingLink string `json:"url"`
	Created        bool   `json:"-"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrLookup              = errors.New("merchant_lookup_failed")
	ErrPermission          = errors.New("permission_denied")
	ErrPaymentAccount      = errors.New("payment_account_error")
	ErrCreationInProgress  = errors.New("merchant_creation_in_progress")
	ErrPersistence         = errors.New("merchant_persistence_failed")
	ErrNotFound            = errors.New("merchant_not_found")
)
