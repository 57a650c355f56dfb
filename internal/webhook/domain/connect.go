package domain

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
)

// ConnectEvent is the closed family of events from connected accounts.
type ConnectEvent interface {
	EventMeta() Meta
	Accept(ctx context.Context, v ConnectVisitor) error
	connectEvent()
}

// ConnectVisitor must handle every connected-account variant.
type ConnectVisitor interface {
	AccountUpdated(ctx context.Context, ev AccountUpdated) error
	ApplicationAuthorized(ctx context.Context, ev ApplicationAuthorized) error
	ApplicationDeauthorized(ctx context.Context, ev ApplicationDeauthorized) error
	PaymentIntentSucceeded(ctx context.Context, ev PaymentIntentSucceeded) error
	PayoutFailed(ctx context.Context, ev PayoutFailed) error
	ExternalAccountUpdated(ctx context.Context, ev ExternalAccountUpdated) error
	BalanceAvailable(ctx context.Context, ev BalanceAvailable) error
	UnhandledConnect(ctx context.Context, ev UnknownConnectEvent) error
}

type AccountUpdated struct {
	Meta
	Account *stripe.Account
}

type ApplicationAuthorized struct {
	Meta
	Application *stripe.Application
}

type ApplicationDeauthorized struct {
	Meta
	Application *stripe.Application
}

type PaymentIntentSucceeded struct {
	Meta
	PaymentIntent *stripe.PaymentIntent
}

type PayoutFailed struct {
	Meta
	Payout *stripe.Payout
}

// ExternalAccountRef identifies the bank account or card that changed.
type ExternalAccountRef struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}

type ExternalAccountUpdated struct {
	Meta
	ExternalAccount *ExternalAccountRef
}

type BalanceAvailable struct {
	Meta
	Balance *stripe.Balance
}

type UnknownConnectEvent struct {
	Meta
}

func (e AccountUpdated) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.AccountUpdated(ctx, e)
}

func (e ApplicationAuthorized) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.ApplicationAuthorized(ctx, e)
}

func (e ApplicationDeauthorized) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.ApplicationDeauthorized(ctx, e)
}

func (e PaymentIntentSucceeded) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.PaymentIntentSucceeded(ctx, e)
}

func (e PayoutFailed) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.PayoutFailed(ctx, e)
}

func (e ExternalAccountUpdated) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.ExternalAccountUpdated(ctx, e)
}

func (e BalanceAvailable) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.BalanceAvailable(ctx, e)
}

func (e UnknownConnectEvent) Accept(ctx context.Context, v ConnectVisitor) error {
	return v.UnhandledConnect(ctx, e)
}

func (AccountUpdated) connectEvent()          {}
func (ApplicationAuthorized) connectEvent()   {}
func (ApplicationDeauthorized) connectEvent() {}
func (PaymentIntentSucceeded) connectEvent()  {}
func (PayoutFailed) connectEvent()            {}
func (ExternalAccountUpdated) connectEvent()  {}
func (BalanceAvailable) connectEvent()        {}
func (UnknownConnectEvent) connectEvent()     {}

var connectParsers = map[string]func(Meta, json.RawMessage) (ConnectEvent, error){
	"account.updated": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		a, err := decode[stripe.Account](raw)
		if err != nil {
			return nil, err
		}
		return AccountUpdated{Meta: m, Account: a}, nil
	},
	"account.application.authorized": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		a, err := decode[stripe.Application](raw)
		if err != nil {
			return nil, err
		}
		return ApplicationAuthorized{Meta: m, Application: a}, nil
	},
	"account.application.deauthorized": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		a, err := decode[stripe.Application](raw)
		if err != nil {
			return nil, err
		}
		return ApplicationDeauthorized{Meta: m, Application: a}, nil
	},
	"payment_intent.succeeded": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		pi, err := decode[stripe.PaymentIntent](raw)
		if err != nil {
			return nil, err
		}
		return PaymentIntentSucceeded{Meta: m, PaymentIntent: pi}, nil
	},
	"payout.failed": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		p, err := decode[stripe.Payout](raw)
		if err != nil {
			return nil, err
		}
		return PayoutFailed{Meta: m, Payout: p}, nil
	},
	"account.external_account.updated": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		ref, err := decode[ExternalAccountRef](raw)
		if err != nil {
			return nil, err
		}
		return ExternalAccountUpdated{Meta: m, ExternalAccount: ref}, nil
	},
	"balance.available": func(m Meta, raw json.RawMessage) (ConnectEvent, error) {
		b, err := decode[stripe.Balance](raw)
		if err != nil {
			return nil, err
		}
		return BalanceAvailable{Meta: m, Balance: b}, nil
	},
}

// ParseConnectEvent maps a verified connected-account event onto its variant.
func ParseConnectEvent(evt stripe.Event) (ConnectEvent, error) {
	meta := Meta{ID: evt.ID, Type: string(evt.Type), Account: evt.Account}
	parse, ok := connectParsers[meta.Type]
	if !ok {
		return UnknownConnectEvent{Meta: meta}, nil
	}
	return parse(meta, rawObject(evt))
}
