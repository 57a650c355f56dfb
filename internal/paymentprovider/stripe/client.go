package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/happybase/portal/internal/config"
	"github.com/happybase/portal/internal/paymentprovider/domain"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

const (
	accountLinkTypeOnboarding = "account_onboarding"
	afterCompletionRedirect   = "redirect"
)

// Client implements domain.Provider on top of the Stripe Connect API.
type Client struct {
	api      *client.API
	currency string
	log      *zap.Logger
}

// New builds a Client with an explicitly constructed Stripe API handle.
func New(cfg config.Config, log *zap.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.Stripe.SecretKey)
	if key == "" {
		return nil, errors.New("stripe secret key is required")
	}
	return NewWithAPI(client.New(key, nil), cfg.Stripe.Currency, log), nil
}

// NewWithAPI wraps an existing API handle, for custom backends.
func NewWithAPI(api *client.API, currency string, log *zap.Logger) *Client {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = string(stripego.CurrencyUSD)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{api: api, currency: currency, log: log.Named("stripe")}
}

func (c *Client) CreateConnectedAccount(ctx context.Context, req domain.AccountRequest) (*domain.Account, error) {
	params := &stripego.AccountParams{
		Type:    stripego.String(string(stripego.AccountTypeExpress)),
		Country: stripego.String(req.Country),
		Email:   stripego.String(req.Email),
		Capabilities: &stripego.AccountCapabilitiesParams{
			CardPayments: &stripego.AccountCapabilitiesCardPaymentsParams{Requested: stripego.Bool(true)},
			Transfers:    &stripego.AccountCapabilitiesTransfersParams{Requested: stripego.Bool(true)},
		},
	}
	params.Context = ctx

	acct, err := c.api.Accounts.New(params)
	if err != nil {
		return nil, c.wrap("create_account", err)
	}
	return &domain.Account{ID: acct.ID}, nil
}

func (c *Client) CreateOnboardingLink(ctx context.Context, req domain.OnboardingLinkRequest) (*domain.OnboardingLink, error) {
	params := &stripego.AccountLinkParams{
		Account:    stripego.String(req.AccountID),
		RefreshURL: stripego.String(req.RefreshURL),
		ReturnURL:  stripego.String(req.ReturnURL),
		Type:       stripego.String(accountLinkTypeOnboarding),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		return nil, c.wrap("create_account_link", err)
	}
	return &domain.OnboardingLink{URL: link.URL}, nil
}

func (c *Client) CreateProduct(ctx context.Context, req domain.ProductRequest) (*domain.Product, error) {
	params := &stripego.ProductParams{Name: stripego.String(req.Name)}
	params.Context = ctx
	params.SetStripeAccount(req.AccountID)

	product, err := c.api.Products.New(params)
	if err != nil {
		return nil, c.wrap("create_product", err)
	}
	return &domain.Product{ID: product.ID}, nil
}

func (c *Client) CreatePrice(ctx context.Context, req domain.PriceRequest) (*domain.Price, error) {
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}
	params := &stripego.PriceParams{
		Product:    stripego.String(req.ProductID),
		UnitAmount: stripego.Int64(req.UnitAmount),
		Currency:   stripego.String(currency),
		Recurring: &stripego.PriceRecurringParams{
			Interval:      stripego.String(string(req.Unit)),
			IntervalCount: stripego.Int64(req.IntervalCount),
		},
	}
	params.Context = ctx
	params.SetStripeAccount(req.AccountID)

	price, err := c.api.Prices.New(params)
	if err != nil {
		return nil, c.wrap("create_price", err)
	}
	return &domain.Price{ID: price.ID}, nil
}

func (c *Client) CreatePaymentLink(ctx context.Context, req domain.PaymentLinkRequest) (*domain.PaymentLink, error) {
	params := &stripego.PaymentLinkParams{
		LineItems: []*stripego.PaymentLinkLineItemParams{
			{Price: stripego.String(req.PriceID), Quantity: stripego.Int64(1)},
		},
	}
	if redirect := strings.TrimSpace(req.RedirectURL); redirect != "" {
		params.AfterCompletion = &stripego.PaymentLinkAfterCompletionParams{
			Type:     stripego.String(afterCompletionRedirect),
			Redirect: &stripego.PaymentLinkAfterCompletionRedirectParams{URL: stripego.String(redirect)},
		}
	}
	params.Context = ctx
	params.SetStripeAccount(req.AccountID)

	link, err := c.api.PaymentLinks.New(params)
	if err != nil {
		return nil, c.wrap("create_payment_link", err)
	}
	return &domain.PaymentLink{ID: link.ID, URL: link.URL}, nil
}

func (c *Client) wrap(op string, err error) error {
	perr := &domain.Error{Op: op, Message: err.Error(), Err: err}
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		perr.Message = stripeErr.Msg
		perr.Code = string(stripeErr.Code)
		perr.StatusCode = stripeErr.HTTPStatusCode
	}
	c.log.Warn("stripe request failed",
		zap.String("op", op),
		zap.String("code", perr.Code),
		zap.Int("status", perr.StatusCode),
	)
	return perr
}

var _ domain.Provider = (*Client)(nil)
