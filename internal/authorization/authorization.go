package authorization

import (
	"context"
	"errors"

	identitydomain "github.com/happybase/portal/internal/identity/domain"
)

const (
	ObjectMerchant = "merchant"
	ObjectApp      = "app"
	ObjectProduct  = "product"
	ObjectPortal   = "portal"
)

const (
	ActionMerchantView    = "merchant.view"
	ActionMerchantCreate  = "merchant.create"
	ActionMerchantRefresh = "merchant.refresh"

	ActionAppView   = "app.view"
	ActionAppCreate = "app.create"
	ActionAppDelete = "app.delete"

	ActionProductView   = "product.view"
	ActionProductCreate = "product.create"

	ActionPortalView   = "portal.view"
	ActionPortalCreate = "portal.create"
)

const (
	RoleAdmin  = "role:admin"
	RoleMember = "role:member"
)

// Service decides whether a verified session may perform an action.
type Service interface {
	Authorize(ctx context.Context, session identitydomain.Session, object, action string) error
	Allowed(ctx context.Context, session identitydomain.Session, object, action string) (bool, error)
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
