package service

import (
	"context"
	"strings"

	"github.com/happybase/portal/internal/analytics"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/webhook/domain"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

const invitationRedirectPath = "/auth/create-organization"

type identityHandler struct {
	log  *zap.Logger
	sink analytics.Sink
}

func (h *identityHandler) UserCreated(ctx context.Context, ev domain.UserCreated) error {
	if ev.User == nil || ev.User.ID == "" {
		return domain.ErrInvalidPayload
	}
	first, last := deref(ev.User.FirstName), deref(ev.User.LastName)
	email := ev.Email()

	h.sink.Identify(ctx, analytics.Identify{
		UserID:    ev.User.ID,
		Email:     email,
		FirstName: first,
		LastName:  last,
		CreatedAt: ev.CreatedAt(),
	})
	h.sink.Track(ctx, analytics.Track{
		UserID: ev.User.ID,
		Event:  analytics.EventUserCreated,
		Properties: map[string]any{
			"email":     email,
			"name":      strings.TrimSpace(first + " " + last),
			"createdAt": ev.User.CreatedAt,
		},
	})
	h.log.Info("user created", zap.String("user_id", ev.User.ID))
	return nil
}

func (h *identityHandler) OrganizationCreated(ctx context.Context, ev domain.OrganizationCreated) error {
	if ev.Organization == nil || ev.Organization.ID == "" {
		return domain.ErrInvalidPayload
	}
	userID := ev.Organization.CreatedBy
	if userID == "" {
		userID = ev.Organization.ID
	}
	h.sink.Track(ctx, analytics.Track{
		UserID: userID,
		Event:  analytics.EventOrganizationCreated,
		Properties: map[string]any{
			"organizationId": ev.Organization.ID,
			"name":           ev.Organization.Name,
			"slug":           ev.Organization.Slug,
		},
	})
	h.log.Info("organization created", zap.String("organization", ev.Organization.ID))
	return nil
}

func (h *identityHandler) UnhandledIdentity(_ context.Context, ev domain.UnknownIdentityEvent) error {
	h.log.Info("unhandled identity event", zap.String("event_type", ev.Type), zap.String("object_id", ev.ID))
	return nil
}

type paymentsHandler struct {
	log       *zap.Logger
	sink      analytics.Sink
	directory identitydomain.Directory
}

func (h *paymentsHandler) CustomerCreated(_ context.Context, ev domain.CustomerCreated) error {
	h.log.Info("customer created", zap.String("customer_id", customerID(ev.Customer)))
	return nil
}

func (h *paymentsHandler) CustomerUpdated(_ context.Context, ev domain.CustomerUpdated) error {
	h.log.Info("customer updated", zap.String("customer_id", customerID(ev.Customer)))
	return nil
}

func (h *paymentsHandler) ChargeSucceeded(_ context.Context, ev domain.ChargeSucceeded) error {
	if ev.Charge != nil {
		h.log.Info("charge succeeded", zap.String("charge_id", ev.Charge.ID), zap.Int64("amount", ev.Charge.Amount))
	}
	return nil
}

func (h *paymentsHandler) PaymentLinkCreated(_ context.Context, ev domain.PaymentLinkCreated) error {
	if ev.PaymentLink != nil {
		h.log.Info("payment link created", zap.String("payment_link_id", ev.PaymentLink.ID))
	}
	return nil
}

// CheckoutSessionCompleted invites the buyer to create an organization.
func (h *paymentsHandler) CheckoutSessionCompleted(ctx context.Context, ev domain.CheckoutSessionCompleted) error {
	if ev.Session == nil {
		return domain.ErrInvalidPayload
	}
	email := ev.CustomerEmail()
	if email == "" {
		h.log.Info("checkout session has no customer email", zap.String("checkout_session_id", ev.Session.ID))
		return nil
	}
	if h.directory == nil {
		return identitydomain.ErrDirectory
	}

	inv, err := h.directory.CreateInvitation(ctx, identitydomain.InvitationRequest{
		Email:          email,
		RedirectURL:    invitationRedirectPath,
		PublicMetadata: map[string]any{"checkoutSessionId": ev.Session.ID},
	})
	if err != nil {
		return err
	}

	h.sink.Track(ctx, analytics.Track{
		UserID: ev.Session.ID,
		Event:  analytics.EventInvitationSent,
		Properties: map[string]any{
			"customerEmail":     email,
			"checkoutSessionId": ev.Session.ID,
			"invitationId":      inv.ID,
		},
	})
	h.log.Info("invitation sent", zap.String("checkout_session_id", ev.Session.ID), zap.String("invitation_id", inv.ID))
	return nil
}

func (h *paymentsHandler) InvoicePaid(ctx context.Context, ev domain.InvoicePaid) error {
	return h.trackInvoice(ctx, analytics.EventInvoicePaid, ev.Invoice)
}

func (h *paymentsHandler) InvoicePaymentFailed(ctx context.Context, ev domain.InvoicePaymentFailed) error {
	return h.trackInvoice(ctx, analytics.EventInvoicePaymentFailed, ev.Invoice)
}

func (h *paymentsHandler) UnhandledPayments(_ context.Context, ev domain.UnknownPaymentsEvent) error {
	h.log.Info("unhandled payments event", zap.String("event_type", ev.Type), zap.String("event_id", ev.ID))
	return nil
}

func (h *paymentsHandler) trackInvoice(ctx context.Context, event string, inv *stripe.Invoice) error {
	if inv == nil || inv.ID == "" {
		return domain.ErrInvalidPayload
	}
	h.sink.Track(ctx, analytics.Track{
		UserID:     inv.ID,
		Event:      event,
		Properties: invoiceProperties(inv),
	})
	return nil
}

func invoiceProperties(inv *stripe.Invoice) map[string]any {
	var customer string
	if inv.Customer != nil {
		customer = inv.Customer.ID
	}
	return map[string]any{
		"amount_due":     inv.AmountDue,
		"currency":       string(inv.Currency),
		"number":         inv.Number,
		"due_date":       inv.DueDate,
		"customer_email": inv.CustomerEmail,
		"customer_name":  inv.CustomerName,
		"customer":       customer,
	}
}

type connectHandler struct {
	log *zap.Logger
}

func (h *connectHandler) AccountUpdated(_ context.Context, ev domain.AccountUpdated) error {
	if ev.Account != nil {
		h.log.Info("account updated",
			zap.String("account_id", ev.Account.ID),
			zap.Bool("charges_enabled", ev.Account.ChargesEnabled),
			zap.Bool("payouts_enabled", ev.Account.PayoutsEnabled),
			zap.Bool("details_submitted", ev.Account.DetailsSubmitted),
		)
	}
	return nil
}

func (h *connectHandler) ApplicationAuthorized(_ context.Context, ev domain.ApplicationAuthorized) error {
	h.log.Info("application authorized", zap.String("account_id", ev.Account))
	return nil
}

func (h *connectHandler) ApplicationDeauthorized(_ context.Context, ev domain.ApplicationDeauthorized) error {
	h.log.Warn("application deauthorized", zap.String("account_id", ev.Account))
	return nil
}

func (h *connectHandler) PaymentIntentSucceeded(_ context.Context, ev domain.PaymentIntentSucceeded) error {
	if ev.PaymentIntent != nil {
		h.log.Info("payment intent succeeded",
			zap.String("account_id", ev.Account),
			zap.String("payment_intent_id", ev.PaymentIntent.ID),
			zap.Int64("amount", ev.PaymentIntent.Amount),
		)
	}
	return nil
}

func (h *connectHandler) PayoutFailed(_ context.Context, ev domain.PayoutFailed) error {
	if ev.Payout != nil {
		h.log.Warn("payout failed",
			zap.String("account_id", ev.Account),
			zap.String("payout_id", ev.Payout.ID),
			zap.String("failure_message", ev.Payout.FailureMessage),
		)
	}
	return nil
}

func (h *connectHandler) ExternalAccountUpdated(_ context.Context, ev domain.ExternalAccountUpdated) error {
	if ev.ExternalAccount != nil {
		h.log.Info("external account updated",
			zap.String("account_id", ev.Account),
			zap.String("external_account_id", ev.ExternalAccount.ID),
		)
	}
	return nil
}

func (h *connectHandler) BalanceAvailable(_ context.Context, ev domain.BalanceAvailable) error {
	if ev.Balance != nil {
		h.log.Info("balance available", zap.String("account_id", ev.Account), zap.Int("currencies", len(ev.Balance.Available)))
	}
	return nil
}

func (h *connectHandler) UnhandledConnect(_ context.Context, ev domain.UnknownConnectEvent) error {
	h.log.Info("unhandled connect event", zap.String("event_type", ev.Type), zap.String("event_id", ev.ID))
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ domain.IdentityVisitor = (*identityHandler)(nil)
	_ domain.PaymentsVisitor = (*paymentsHandler)(nil)
	_ domain.ConnectVisitor  = (*connectHandler)(nil)
)
