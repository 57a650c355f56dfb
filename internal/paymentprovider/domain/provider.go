package domain

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -source=provider.go -destination=../mock/provider_mock.go -package=mock

// Provider is the narrow slice of the payments platform the provisioning
// workflow depends on. Every call except CreateConnectedAccount is scoped to
// an existing connected account.
type Provider interface {
	CreateConnectedAccount(ctx context.Context, req AccountRequest) (*Account, error)
	CreateOnboardingLink(ctx context.Context, req OnboardingLinkRequest) (*OnboardingLink, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*Product, error)
	CreatePrice(ctx context.Context, req PriceRequest) (*Price, error)
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error)
}

type AccountRequest struct {
	Email   string
	Country string
}

type Account struct {
	ID string
}

type OnboardingLinkRequest struct {
	AccountID  string
	RefreshURL string
	ReturnURL  string
}

type OnboardingLink struct {
	URL string
}

type ProductRequest struct {
	AccountID string
	Name      string
}

type Product struct {
	ID string
}

// RecurringUnit is the provider's billing period unit.
type RecurringUnit string

const (
	RecurringUnitMonth RecurringUnit = "month"
	RecurringUnitYear  RecurringUnit = "year"
)

type PriceRequest struct {
	AccountID     string
	ProductID     string
	UnitAmount    int64
	Currency      string
	Unit          RecurringUnit
	IntervalCount int64
}

type Price struct {
	ID string
}

type PaymentLinkRequest struct {
	AccountID   string
	PriceID     string
	RedirectURL string
}

type PaymentLink struct {
	ID  string
	URL string
}

// ErrProvider matches every error returned by a Provider call.
var ErrProvider = errors.New("payment_provider_error")

// Error carries the provider's own message so callers can surface it verbatim.
type Error struct {
	Op         string
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrProvider
}

// ProviderMessage extracts the provider's message from err, if it carries one.
func ProviderMessage(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Message
	}
	return ""
}
