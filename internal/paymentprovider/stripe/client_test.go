package stripe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/happybase/portal/internal/paymentprovider/domain"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap/zaptest"
)

type recordedRequest struct {
	path    string
	account string
	form    url.Values
}

type fakeStripe struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(raw))

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		path:    r.URL.Path,
		account: r.Header.Get("Stripe-Account"),
		form:    form,
	})
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeStripe) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("expected a request to the fake stripe backend")
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeStripe) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	retries := int64(0)
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
		URL:               stripego.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: &retries,
	})
	api := client.New("sk_test_123", &stripego.Backends{API: backend, Connect: backend, Uploads: backend})
	return NewWithAPI(api, "usd", zaptest.NewLogger(t))
}

func TestCreateConnectedAccountRequestsCapabilities(t *testing.T) {
	fake := &fakeStripe{body: `{"id":"acct_123","object":"account"}`}
	c := newTestClient(t, fake)

	acct, err := c.CreateConnectedAccount(context.Background(), domain.AccountRequest{Email: "jane@example.com", Country: "US"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if acct.ID != "acct_123" {
		t.Fatalf("unexpected account id %q", acct.ID)
	}

	req := fake.last(t)
	if req.path != "/v1/accounts" {
		t.Fatalf("unexpected path %q", req.path)
	}
	checks := map[string]string{
		"type":                                  "express",
		"country":                               "US",
		"email":                                 "jane@example.com",
		"capabilities[card_payments][requested]": "true",
		"capabilities[transfers][requested]":     "true",
	}
	for key, want := range checks {
		if got := req.form.Get(key); got != want {
			t.Fatalf("form %s = %q, want %q", key, got, want)
		}
	}
}

func TestCreatePriceIsScopedToConnectedAccount(t *testing.T) {
	fake := &fakeStripe{body: `{"id":"price_123","object":"price"}`}
	c := newTestClient(t, fake)

	price, err := c.CreatePrice(context.Background(), domain.PriceRequest{
		AccountID:     "acct_123",
		ProductID:     "prod_123",
		UnitAmount:    12000,
		Unit:          domain.RecurringUnitMonth,
		IntervalCount: 3,
	})
	if err != nil {
		t.Fatalf("create price: %v", err)
	}
	if price.ID != "price_123" {
		t.Fatalf("unexpected price id %q", price.ID)
	}

	req := fake.last(t)
	if req.account != "acct_123" {
		t.Fatalf("expected Stripe-Account header, got %q", req.account)
	}
	if req.form.Get("unit_amount") != "12000" || req.form.Get("currency") != "usd" {
		t.Fatalf("unexpected price form %v", req.form)
	}
	if req.form.Get("recurring[interval]") != "month" || req.form.Get("recurring[interval_count]") != "3" {
		t.Fatalf("unexpected recurring form %v", req.form)
	}
}

func TestCreatePaymentLinkWithRedirect(t *testing.T) {
	fake := &fakeStripe{body: `{"id":"plink_123","object":"payment_link","url":"https://buy.stripe.com/test_123"}`}
	c := newTestClient(t, fake)

	link, err := c.CreatePaymentLink(context.Background(), domain.PaymentLinkRequest{
		AccountID:   "acct_123",
		PriceID:     "price_123",
		RedirectURL: "https://app.happybase.co/portal/42/access/abc",
	})
	if err != nil {
		t.Fatalf("create payment link: %v", err)
	}
	if link.URL != "https://buy.stripe.com/test_123" {
		t.Fatalf("unexpected link %q", link.URL)
	}

	req := fake.last(t)
	if req.form.Get("line_items[0][price]") != "price_123" || req.form.Get("line_items[0][quantity]") != "1" {
		t.Fatalf("unexpected line items %v", req.form)
	}
	if req.form.Get("after_completion[type]") != "redirect" {
		t.Fatalf("expected redirect after completion, got %v", req.form)
	}
	if req.form.Get("after_completion[redirect][url]") != "https://app.happybase.co/portal/42/access/abc" {
		t.Fatalf("unexpected redirect url %v", req.form)
	}
}

func TestProviderErrorCarriesStripeMessage(t *testing.T) {
	fake := &fakeStripe{
		status: http.StatusBadRequest,
		body:   `{"error":{"type":"invalid_request_error","code":"parameter_missing","message":"Missing required param: name."}}`,
	}
	c := newTestClient(t, fake)

	_, err := c.CreateProduct(context.Background(), domain.ProductRequest{AccountID: "acct_123"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := domain.ProviderMessage(err); got != "Missing required param: name." {
		t.Fatalf("unexpected provider message %q", got)
	}
}
