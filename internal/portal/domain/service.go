package domain

import (
	"context"
	"errors"
	"time"

	productdomain "github.com/happybase/portal/internal/product/domain"
	"github.com/shopspring/decimal"
)

type Service interface {
	CreatePortal(ctx context.Context, req CreateRequest) (*Portal, error)
	Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error)
	View(ctx context.Context, id string) (*AccessView, error)
	Access(ctx context.Context, id, token string) (*AccessView, error)
}

type CreateRequest struct {
	AppID       int64
	CreatorID   string
	SourceURL   string
	Product     productdomain.Response
	AccessToken string
	RedirectURL string
}

type BroadcastRequest struct {
	AppID          string
	CreatorID      string
	OrganizationID string
	Name           string
	Price          string
	Interval       string
}

type Response struct {
	ID            string                 `json:"id"`
	CreatorID     string                 `json:"creator_id"`
	URL           string                 `json:"url"`
	ProductID     string                 `json:"product_id"`
	Merchant      string                 `json:"merchant"`
	Price         decimal.Decimal        `json:"price"`
	DisplayPrice  string                 `json:"display_price"`
	Interval      productdomain.Interval `json:"interval"`
	StripePriceID string                 `json:"stripe_price_id"`
	PaymentLink   string                 `json:"payment_link"`
	RedirectURL   string                 `json:"redirect_url,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type BroadcastResult struct {
	Portal     Response `json:"portal"`
	PublicLink string   `json:"public_link"`
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrAppNotFound      = errors.New("app_not_found")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyBroadcast = errors.New("already_broadcast")
	ErrPersistence      = errors.New("portal_persistence_failed")
)
