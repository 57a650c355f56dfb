package domain

import (
	"encoding/json"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrNotConfigured    = errors.New("webhook_not_configured")
)

const (
	ProviderClerk         = "clerk"
	ProviderStripe        = "stripe"
	ProviderStripeConnect = "stripe_connect"
)

// Meta is the envelope shared by every event variant.
type Meta struct {
	ID      string
	Type    string
	Account string
}

func (m Meta) EventMeta() Meta { return m }

func decode[T any](raw json.RawMessage) (*T, error) {
	out := new(T)
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	return out, nil
}
