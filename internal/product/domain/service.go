package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Registrar creates the provider objects that make a portal purchasable.
type Registrar interface {
	Register(ctx context.Context, req RegisterRequest) (*Registration, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, organization string) ([]Response, error)
	Get(ctx context.Context, organization, id string) (*Response, error)
}

type RegisterRequest struct {
	Name              string
	Price             string
	Interval          string
	MerchantID        string
	OrganizationID    string
	PrivateContentURL string

	// CreatePaymentLink adds a hosted checkout link for the new price.
	CreatePaymentLink bool
	// RedirectURL is where buyers land after checkout. Optional.
	RedirectURL string
}

type Registration struct {
	ProductID      string
	PriceID        string
	PaymentLinkID  string
	PaymentLinkURL string
	Name           string
	Amount         decimal.Decimal
	UnitAmount     int64
	Currency       string
	Interval       Interval
	MerchantID     string
	OrganizationID string
	PrivateURL     string
}

type CreateRequest struct {
	Name              string
	Price             string
	Interval          string
	MerchantID        string
	OrganizationID    string
	PrivateContentURL string
	CreatePaymentLink bool
	RedirectURL       string
}

type Response struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DisplayPrice  string          `json:"display_price"`
	Interval      Interval        `json:"interval"`
	Organization  string          `json:"organization"`
	Merchant      string          `json:"merchant"`
	PrivateURL    string          `json:"private_url,omitempty"`
	StripePriceID string          `json:"stripe_price_id"`
	PaymentLink   string          `json:"payment_link,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidInterval     = errors.New("invalid_interval")
	ErrInvalidMerchant     = errors.New("invalid_merchant")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrNotFound            = errors.New("not_found")
	ErrPersistence         = errors.New("persistence_error")
)
