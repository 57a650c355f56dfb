package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	clerksdk "github.com/clerk/clerk-sdk-go/v2"
)

// IdentityEvent is the closed family of identity provider events.
type IdentityEvent interface {
	EventMeta() Meta
	Accept(ctx context.Context, v IdentityVisitor) error
	identityEvent()
}

// IdentityVisitor must handle every identity variant.
type IdentityVisitor interface {
	UserCreated(ctx context.Context, ev UserCreated) error
	OrganizationCreated(ctx context.Context, ev OrganizationCreated) error
	UnhandledIdentity(ctx context.Context, ev UnknownIdentityEvent) error
}

type UserCreated struct {
	Meta
	User *clerksdk.User
}

// Email is the first address on the user, as delivered in the event.
func (e UserCreated) Email() string {
	if e.User == nil {
		return ""
	}
	for _, addr := range e.User.EmailAddresses {
		if addr != nil && addr.EmailAddress != "" {
			return addr.EmailAddress
		}
	}
	return ""
}

func (e UserCreated) CreatedAt() time.Time {
	if e.User == nil || e.User.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.User.CreatedAt).UTC()
}

type OrganizationPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

type OrganizationCreated struct {
	Meta
	Organization *OrganizationPayload
}

type UnknownIdentityEvent struct {
	Meta
}

func (e UserCreated) Accept(ctx context.Context, v IdentityVisitor) error {
	return v.UserCreated(ctx, e)
}

func (e OrganizationCreated) Accept(ctx context.Context, v IdentityVisitor) error {
	return v.OrganizationCreated(ctx, e)
}

func (e UnknownIdentityEvent) Accept(ctx context.Context, v IdentityVisitor) error {
	return v.UnhandledIdentity(ctx, e)
}

func (UserCreated) identityEvent()          {}
func (OrganizationCreated) identityEvent()  {}
func (UnknownIdentityEvent) identityEvent() {}

type identityEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var identityParsers = map[string]func(Meta, json.RawMessage) (IdentityEvent, error){
	"user.created": func(m Meta, raw json.RawMessage) (IdentityEvent, error) {
		u, err := decode[clerksdk.User](raw)
		if err != nil {
			return nil, err
		}
		m.ID = u.ID
		return UserCreated{Meta: m, User: u}, nil
	},
	"organization.created": func(m Meta, raw json.RawMessage) (IdentityEvent, error) {
		org, err := decode[OrganizationPayload](raw)
		if err != nil {
			return nil, err
		}
		m.ID = org.ID
		return OrganizationCreated{Meta: m, Organization: org}, nil
	},
}

// ParseIdentityEvent maps a verified identity webhook body onto its variant.
func ParseIdentityEvent(payload []byte) (IdentityEvent, error) {
	var env identityEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return nil, ErrInvalidPayload
	}

	meta := Meta{Type: env.Type}
	parse, ok := identityParsers[env.Type]
	if !ok {
		var ref struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(env.Data, &ref)
		meta.ID = ref.ID
		return UnknownIdentityEvent{Meta: meta}, nil
	}
	return parse(meta, env.Data)
}
