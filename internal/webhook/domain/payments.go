package domain

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
)

// PaymentsEvent is the closed family of platform payment events.
type PaymentsEvent interface {
	EventMeta() Meta
	Accept(ctx context.Context, v PaymentsVisitor) error
	paymentsEvent()
}

// PaymentsVisitor must handle every platform payment variant.
type PaymentsVisitor interface {
	CustomerCreated(ctx context.Context, ev CustomerCreated) error
	CustomerUpdated(ctx context.Context, ev CustomerUpdated) error
	ChargeSucceeded(ctx context.Context, ev ChargeSucceeded) error
	PaymentLinkCreated(ctx context.Context, ev PaymentLinkCreated) error
	CheckoutSessionCompleted(ctx context.Context, ev CheckoutSessionCompleted) error
	InvoicePaid(ctx context.Context, ev InvoicePaid) error
	InvoicePaymentFailed(ctx context.Context, ev InvoicePaymentFailed) error
	UnhandledPayments(ctx context.Context, ev UnknownPaymentsEvent) error
}

type CustomerCreated struct {
	Meta
	Customer *stripe.Customer
}

type CustomerUpdated struct {
	Meta
	Customer *stripe.Customer
}

type ChargeSucceeded struct {
	Meta
	Charge *stripe.Charge
}

type PaymentLinkCreated struct {
	Meta
	PaymentLink *stripe.PaymentLink
}

type CheckoutSessionCompleted struct {
	Meta
	Session *stripe.CheckoutSession
}

// CustomerEmail prefers the collected customer details over the prefilled email.
func (e CheckoutSessionCompleted) CustomerEmail() string {
	if e.Session == nil {
		return ""
	}
	if e.Session.CustomerDetails != nil && e.Session.CustomerDetails.Email != "" {
		return e.Session.CustomerDetails.Email
	}
	return e.Session.CustomerEmail
}

type InvoicePaid struct {
	Meta
	Invoice *stripe.Invoice
}

type InvoicePaymentFailed struct {
	Meta
	Invoice *stripe.Invoice
}

type UnknownPaymentsEvent struct {
	Meta
}

func (e CustomerCreated) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.CustomerCreated(ctx, e)
}

func (e CustomerUpdated) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.CustomerUpdated(ctx, e)
}

func (e ChargeSucceeded) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.ChargeSucceeded(ctx, e)
}

func (e PaymentLinkCreated) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.PaymentLinkCreated(ctx, e)
}

func (e CheckoutSessionCompleted) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.CheckoutSessionCompleted(ctx, e)
}

func (e InvoicePaid) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.InvoicePaid(ctx, e)
}

func (e InvoicePaymentFailed) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.InvoicePaymentFailed(ctx, e)
}

func (e UnknownPaymentsEvent) Accept(ctx context.Context, v PaymentsVisitor) error {
	return v.UnhandledPayments(ctx, e)
}

func (CustomerCreated) paymentsEvent()          {}
func (CustomerUpdated) paymentsEvent()          {}
func (ChargeSucceeded) paymentsEvent()          {}
func (PaymentLinkCreated) paymentsEvent()       {}
func (CheckoutSessionCompleted) paymentsEvent() {}
func (InvoicePaid) paymentsEvent()              {}
func (InvoicePaymentFailed) paymentsEvent()     {}
func (UnknownPaymentsEvent) paymentsEvent()     {}

var paymentsParsers = map[string]func(Meta, json.RawMessage) (PaymentsEvent, error){
	"customer.created": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		c, err := decode[stripe.Customer](raw)
		if err != nil {
			return nil, err
		}
		return CustomerCreated{Meta: m, Customer: c}, nil
	},
	"customer.updated": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		c, err := decode[stripe.Customer](raw)
		if err != nil {
			return nil, err
		}
		return CustomerUpdated{Meta: m, Customer: c}, nil
	},
	"charge.succeeded": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		c, err := decode[stripe.Charge](raw)
		if err != nil {
			return nil, err
		}
		return ChargeSucceeded{Meta: m, Charge: c}, nil
	},
	"payment_link.created": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		l, err := decode[stripe.PaymentLink](raw)
		if err != nil {
			return nil, err
		}
		return PaymentLinkCreated{Meta: m, PaymentLink: l}, nil
	},
	"checkout.session.completed": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		s, err := decode[stripe.CheckoutSession](raw)
		if err != nil {
			return nil, err
		}
		return CheckoutSessionCompleted{Meta: m, Session: s}, nil
	},
	"invoice.paid": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		inv, err := decode[stripe.Invoice](raw)
		if err != nil {
			return nil, err
		}
		return InvoicePaid{Meta: m, Invoice: inv}, nil
	},
	"invoice.payment_failed": func(m Meta, raw json.RawMessage) (PaymentsEvent, error) {
		inv, err := decode[stripe.Invoice](raw)
		if err != nil {
			return nil, err
		}
		return InvoicePaymentFailed{Meta: m, Invoice: inv}, nil
	},
}

// ParsePaymentsEvent maps a verified platform event onto its variant.
func ParsePaymentsEvent(evt stripe.Event) (PaymentsEvent, error) {
	meta := Meta{ID: evt.ID, Type: string(evt.Type), Account: evt.Account}
	parse, ok := paymentsParsers[meta.Type]
	if !ok {
		return UnknownPaymentsEvent{Meta: meta}, nil
	}
	return parse(meta, rawObject(evt))
}

func rawObject(evt stripe.Event) json.RawMessage {
	if evt.Data == nil {
		return nil
	}
	return evt.Data.Raw
}
