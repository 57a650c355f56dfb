package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Directory is the identity provider surface used by provisioning and webhooks.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	UpdateUserPublicMetadata(ctx context.Context, userID string, metadata map[string]any) error
	GetOrganization(ctx context.Context, orgID string) (*Organization, error)
	CreateInvitation(ctx context.Context, req InvitationRequest) (*Invitation, error)
}

type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	PublicMetadata map[string]any
	CreatedAt      time.Time
}

type Organization struct {
	ID             string
	Name           string
	PublicMetadata map[string]any
}

const OrganizationStatusSuspended = "suspended"

// Suspended reports whether the organization was suspended through its public metadata.
func (o *Organization) Suspended() bool {
	if o == nil || o.PublicMetadata == nil {
		return false
	}
	status, _ := o.PublicMetadata["status"].(string)
	return strings.EqualFold(strings.TrimSpace(status), OrganizationStatusSuspended)
}

type InvitationRequest struct {
	Email          string
	RedirectURL    string
	PublicMetadata map[string]any
}

type Invitation struct {
	ID     string
	Email  string
	Status string
}

// Session is the verified identity attached to an authenticated request.
type Session struct {
	UserID    string
	SessionID string
	OrgID     string
	OrgRole   string
}

// IsAdmin accepts both the prefixed and the short role claim.
func (s Session) IsAdmin() bool {
	switch strings.TrimSpace(s.OrgRole) {
	case "org:admin", "admin":
		return true
	default:
		return false
	}
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNoOrganization  = errors.New("no_active_organization")
	ErrNotFound        = errors.New("identity_not_found")
	ErrDirectory       = errors.New("identity_provider_error")
)

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.UserID != ""
}
