package authorization

import (
	"context"
	"errors"
	"testing"

	identitydomain "github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/testutil"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	return NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin := identitydomain.Session{UserID: "user_admin", OrgID: "org_1", OrgRole: "org:admin"}
	member := identitydomain.Session{UserID: "user_member", OrgID: "org_1", OrgRole: "org:member"}

	cases := []struct {
		name    string
		session identitydomain.Session
		object  string
		action  string
		allowed bool
	}{
		{"admin creates merchant", admin, ObjectMerchant, ActionMerchantCreate, true},
		{"admin refreshes link", admin, ObjectMerchant, ActionMerchantRefresh, true},
		{"admin broadcasts", admin, ObjectPortal, ActionPortalCreate, true},
		{"member views merchant", member, ObjectMerchant, ActionMerchantView, true},
		{"member creates app", member, ObjectApp, ActionAppCreate, true},
		{"member broadcasts", member, ObjectPortal, ActionPortalCreate, true},
		{"member cannot create merchant", member, ObjectMerchant, ActionMerchantCreate, false},
		{"member cannot refresh link", member, ObjectMerchant, ActionMerchantRefresh, false},
		{"unknown action", admin, ObjectApp, "app.transfer", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.session, tc.object, tc.action)
			if tc.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
		})
	}
}

func TestAdminRoleWithoutOrganizationIsMember(t *testing.T) {
	svc := newTestService(t)
	allowed, err := svc.Allowed(context.Background(), identitydomain.Session{UserID: "user_1", OrgRole: "admin"}, ObjectMerchant, ActionMerchantCreate)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if allowed {
		t.Fatalf("expected personal scope to fall back to member")
	}
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess := identitydomain.Session{UserID: "user_1", OrgID: "org_1", OrgRole: "org:admin"}
	if err := svc.Authorize(ctx, sess, ObjectMerchant, ActionMerchantCreate); err != nil {
		t.Fatalf("admin: %v", err)
	}

	sess.OrgRole = "org:member"
	if err := svc.Authorize(ctx, sess, ObjectMerchant, ActionMerchantCreate); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected demoted user to be forbidden, got %v", err)
	}
}

func TestRolesAreScopedPerOrganization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Authorize(ctx, identitydomain.Session{UserID: "user_1", OrgID: "org_a", OrgRole: "admin"}, ObjectMerchant, ActionMerchantCreate); err != nil {
		t.Fatalf("org_a admin: %v", err)
	}
	err := svc.Authorize(ctx, identitydomain.Session{UserID: "user_1", OrgID: "org_b", OrgRole: "org:member"}, ObjectMerchant, ActionMerchantCreate)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden in org_b, got %v", err)
	}
}

func TestAuthorizeRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Authorize(ctx, identitydomain.Session{}, ObjectApp, ActionAppView); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected invalid actor, got %v", err)
	}
	sess := identitydomain.Session{UserID: "user_1"}
	if err := svc.Authorize(ctx, sess, " ", ActionAppView); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("expected invalid object, got %v", err)
	}
	if err := svc.Authorize(ctx, sess, ObjectApp, ""); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected invalid action, got %v", err)
	}
}

func TestGormEnforcerSeedsOnce(t *testing.T) {
	db := testutil.OpenDB(t)

	first, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("first enforcer: %v", err)
	}
	policies, err := first.GetPolicy()
	if err != nil {
		t.Fatalf("policies: %v", err)
	}

	second, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("second enforcer: %v", err)
	}
	reloaded, err := second.GetPolicy()
	if err != nil {
		t.Fatalf("reloaded policies: %v", err)
	}
	if len(reloaded) != len(policies) {
		t.Fatalf("expected %d policies after reload, got %d", len(policies), len(reloaded))
	}

	svc := NewService(Params{Log: zaptest.NewLogger(t), Enforcer: second})
	if err := svc.Authorize(context.Background(), identitydomain.Session{UserID: "user_1", OrgID: "org_1", OrgRole: "admin"}, ObjectMerchant, ActionMerchantRefresh); err != nil {
		t.Fatalf("authorize: %v", err)
	}
}
