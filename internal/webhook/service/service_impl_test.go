package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/happybase/portal/internal/analytics"
	"github.com/happybase/portal/internal/config"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	stripeSecret  = "whsec_platform_test"
	connectSecret = "whsec_connect_test"
)

var svixKey = []byte("happybase-svix-test-key-32-bytes")

type recordingSink struct {
	mu         sync.Mutex
	identifies []analytics.Identify
	tracks     []analytics.Track
}

func (s *recordingSink) Identify(_ context.Context, ev analytics.Identify) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identifies = append(s.identifies, ev)
}

func (s *recordingSink) Track(_ context.Context, ev analytics.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, ev)
}

type invitingDirectory struct {
	requests []identitydomain.InvitationRequest
	err      error
}

func (d *invitingDirectory) GetUser(context.Context, string) (*identitydomain.User, error) {
	return nil, identitydomain.ErrNotFound
}

func (d *invitingDirectory) UpdateUserPublicMetadata(context.Context, string, map[string]any) error {
	return nil
}

func (d *invitingDirectory) GetOrganization(context.Context, string) (*identitydomain.Organization, error) {
	return nil, identitydomain.ErrNotFound
}

func (d *invitingDirectory) CreateInvitation(_ context.Context, req identitydomain.InvitationRequest) (*identitydomain.Invitation, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.requests = append(d.requests, req)
	return &identitydomain.Invitation{ID: "inv_1", Email: req.Email, Status: "pending"}, nil
}

func newTestService(t *testing.T, dir identitydomain.Directory, sink analytics.Sink) *Service {
	t.Helper()
	return New(Params{
		Config: config.Config{
			Stripe: config.StripeConfig{WebhookSecret: stripeSecret, ConnectWebhookSecret: connectSecret},
			Clerk:  config.ClerkConfig{WebhookSecret: "whsec_" + base64.StdEncoding.EncodeToString(svixKey)},
		},
		Log:       zaptest.NewLogger(t),
		Directory: dir,
		Sink:      sink,
	})
}

func stripeHeaders(payload []byte, secret string) http.Header {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return h
}

func svixHeaders(payload []byte) http.Header {
	id := "msg_test_1"
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, svixKey)
	_, _ = mac.Write([]byte(id + "." + ts + "." + string(payload)))
	h := http.Header{}
	h.Set("svix-id", id)
	h.Set("svix-timestamp", ts)
	h.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return h
}

func stripeEvent(typ, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"api_version":"2023-08-16","created":1700000000,"data":{"object":%s}}`, typ, object))
}

func TestPaymentsRejectsBadSignature(t *testing.T) {
	sink := &recordingSink{}
	dir := &invitingDirectory{}
	svc := newTestService(t, dir, sink)

	payload := stripeEvent("checkout.session.completed", `{"id":"cs_1","object":"checkout.session","customer_details":{"email":"buyer@example.com"}}`)

	err := svc.HandlePayments(context.Background(), payload, stripeHeaders(payload, "whsec_wrong"))
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	err = svc.HandlePayments(context.Background(), payload, http.Header{})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	assert.Empty(t, dir.requests)
	assert.Empty(t, sink.tracks)
}

func TestCheckoutCompletedSendsInvitation(t *testing.T) {
	sink := &recordingSink{}
	dir := &invitingDirectory{}
	svc := newTestService(t, dir, sink)

	payload := stripeEvent("checkout.session.completed", `{"id":"cs_1","object":"checkout.session","customer_details":{"email":"buyer@example.com"}}`)
	require.NoError(t, svc.HandlePayments(context.Background(), payload, stripeHeaders(payload, stripeSecret)))

	require.Len(t, dir.requests, 1)
	assert.Equal(t, "buyer@example.com", dir.requests[0].Email)
	assert.Equal(t, "/auth/create-organization", dir.requests[0].RedirectURL)
	assert.Equal(t, map[string]any{"checkoutSessionId": "cs_1"}, dir.requests[0].PublicMetadata)

	require.Len(t, sink.tracks, 1)
	assert.Equal(t, analytics.EventInvitationSent, sink.tracks[0].Event)
	assert.Equal(t, "cs_1", sink.tracks[0].UserID)
	assert.Equal(t, "inv_1", sink.tracks[0].Properties["invitationId"])
}

func TestCheckoutWithoutEmailIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	dir := &invitingDirectory{}
	svc := newTestService(t, dir, sink)

	payload := stripeEvent("checkout.session.completed", `{"id":"cs_2","object":"checkout.session"}`)
	require.NoError(t, svc.HandlePayments(context.Background(), payload, stripeHeaders(payload, stripeSecret)))
	assert.Empty(t, dir.requests)
	assert.Empty(t, sink.tracks)
}

func TestHandlerErrorsAreAcknowledged(t *testing.T) {
	sink := &recordingSink{}
	dir := &invitingDirectory{err: errors.New("clerk down")}
	svc := newTestService(t, dir, sink)

	payload := stripeEvent("checkout.session.completed", `{"id":"cs_3","object":"checkout.session","customer_email":"x@example.com"}`)
	require.NoError(t, svc.HandlePayments(context.Background(), payload, stripeHeaders(payload, stripeSecret)))
	assert.Empty(t, sink.tracks)
}

func TestInvoiceEventsAreTracked(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, &invitingDirectory{}, sink)

	invoice := `{"id":"in_1","object":"invoice","amount_due":1999,"currency":"usd","number":"HB-0001","due_date":1700086400,"customer_email":"buyer@example.com","customer_name":"Buyer","customer":"cus_1"}`

	paid := stripeEvent("invoice.paid", invoice)
	require.NoError(t, svc.HandlePayments(context.Background(), paid, stripeHeaders(paid, stripeSecret)))
	failed := stripeEvent("invoice.payment_failed", invoice)
	require.NoError(t, svc.HandlePayments(context.Background(), failed, stripeHeaders(failed, stripeSecret)))

	require.Len(t, sink.tracks, 2)
	assert.Equal(t, analytics.EventInvoicePaid, sink.tracks[0].Event)
	assert.Equal(t, analytics.EventInvoicePaymentFailed, sink.tracks[1].Event)

	props := sink.tracks[0].Properties
	assert.Equal(t, "in_1", sink.tracks[0].UserID)
	assert.Equal(t, int64(1999), props["amount_due"])
	assert.Equal(t, "usd", props["currency"])
	assert.Equal(t, "HB-0001", props["number"])
	assert.Equal(t, int64(1700086400), props["due_date"])
	assert.Equal(t, "buyer@example.com", props["customer_email"])
	assert.Equal(t, "Buyer", props["customer_name"])
	assert.Equal(t, "cus_1", props["customer"])
}

func TestUndecodableVerifiedEventIsAcknowledged(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, &invitingDirectory{}, sink)

	invoice := stripeEvent("invoice.paid", `{"id":"in_2","object":"invoice","amount_due":"not-a-number"}`)
	require.NoError(t, svc.HandlePayments(context.Background(), invoice, stripeHeaders(invoice, stripeSecret)))

	payout := stripeEvent("payout.failed", `{"id":"po_2","object":"payout","amount":"lots"}`)
	require.NoError(t, svc.HandleConnect(context.Background(), payout, stripeHeaders(payout, connectSecret)))

	user := []byte(`{"type":"user.created","object":"event","data":{"id":"user_3","created_at":"yesterday"}}`)
	require.NoError(t, svc.HandleIdentity(context.Background(), user, svixHeaders(user)))

	assert.Empty(t, sink.tracks)
	assert.Empty(t, sink.identifies)
}

func TestUnknownPaymentsEventIsAcknowledged(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, &invitingDirectory{}, sink)

	payload := stripeEvent("product.created", `{"id":"prod_1","object":"product"}`)
	require.NoError(t, svc.HandlePayments(context.Background(), payload, stripeHeaders(payload, stripeSecret)))
	assert.Empty(t, sink.tracks)
}

func TestConnectUsesItsOwnSecret(t *testing.T) {
	svc := newTestService(t, &invitingDirectory{}, &recordingSink{})

	payload := stripeEvent("payout.failed", `{"id":"po_1","object":"payout","failure_message":"account closed"}`)
	require.NoError(t, svc.HandleConnect(context.Background(), payload, stripeHeaders(payload, connectSecret)))

	err := svc.HandleConnect(context.Background(), payload, stripeHeaders(payload, stripeSecret))
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestIdentityUserCreated(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, &invitingDirectory{}, sink)

	payload := []byte(`{"type":"user.created","object":"event","data":{"id":"user_1","object":"user","first_name":"Ada","last_name":"Lovelace","created_at":1700000000000,"email_addresses":[{"id":"idn_1","object":"email_address","email_address":"ada@example.com"}]}}`)
	require.NoError(t, svc.HandleIdentity(context.Background(), payload, svixHeaders(payload)))

	require.Len(t, sink.identifies, 1)
	assert.Equal(t, "user_1", sink.identifies[0].UserID)
	assert.Equal(t, "ada@example.com", sink.identifies[0].Email)
	assert.Equal(t, "Ada", sink.identifies[0].FirstName)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), sink.identifies[0].CreatedAt)

	require.Len(t, sink.tracks, 1)
	assert.Equal(t, analytics.EventUserCreated, sink.tracks[0].Event)
	assert.Equal(t, "Ada Lovelace", sink.tracks[0].Properties["name"])
}

func TestIdentityOrganizationCreated(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, &invitingDirectory{}, sink)

	payload := []byte(`{"type":"organization.created","object":"event","data":{"id":"org_1","object":"organization","name":"Acme","slug":"acme","created_by":"user_1"}}`)
	require.NoError(t, svc.HandleIdentity(context.Background(), payload, svixHeaders(payload)))

	require.Len(t, sink.tracks, 1)
	assert.Equal(t, analytics.EventOrganizationCreated, sink.tracks[0].Event)
	assert.Equal(t, "user_1", sink.tracks[0].UserID)
	assert.Equal(t, "org_1", sink.tracks[0].Properties["organizationId"])
}

func TestIdentityRejectsBadSignature(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, &invitingDirectory{}, sink)

	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := svixHeaders(payload)
	tampered := []byte(`{"type":"user.created","data":{"id":"user_2"}}`)

	err := svc.HandleIdentity(context.Background(), tampered, headers)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Empty(t, sink.identifies)

	err = svc.HandleIdentity(context.Background(), payload, http.Header{})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestMissingSecretIsNotConfigured(t *testing.T) {
	svc := New(Params{Log: zaptest.NewLogger(t)})
	payload := stripeEvent("invoice.paid", `{"id":"in_1"}`)

	require.ErrorIs(t, svc.HandlePayments(context.Background(), payload, stripeHeaders(payload, stripeSecret)), domain.ErrNotConfigured)
	require.ErrorIs(t, svc.HandleIdentity(context.Background(), payload, http.Header{}), domain.ErrNotConfigured)
}
