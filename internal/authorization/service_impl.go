package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// personalDomain scopes sessions that have no active organization.
const personalDomain = "personal"

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer persists policies and role links through the gorm adapter.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return seed(enforcer)
}

// NewMemoryEnforcer keeps policies in process only.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	return seed(enforcer)
}

func seed(enforcer *casbin.SyncedEnforcer) (*casbin.SyncedEnforcer, error) {
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, session identitydomain.Session, object, action string) error {
	allowed, err := s.Allowed(ctx, session, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		obslogger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("user_id", session.UserID),
			zap.String("org_id", session.OrgID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Allowed(_ context.Context, session identitydomain.Session, object, action string) (bool, error) {
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return false, ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return false, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}

	subject := fmt.Sprintf("user:%s", userID)
	domain := personalDomain
	if orgID := strings.TrimSpace(session.OrgID); orgID != "" {
		domain = fmt.Sprintf("org:%s", orgID)
	}
	if err := s.ensureGrouping(subject, roleFor(session), domain); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, domain, object, action)
}

func roleFor(session identitydomain.Session) string {
	if session.OrgID != "" && session.IsAdmin() {
		return RoleAdmin
	}
	return RoleMember
}

// ensureGrouping keeps exactly one role link per subject and domain, so a
// role change in the identity provider takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	member := [][]string{
		{ObjectMerchant, ActionMerchantView},
		{ObjectApp, ActionAppView},
		{ObjectApp, ActionAppCreate},
		{ObjectApp, ActionAppDelete},
		{ObjectProduct, ActionProductView},
		{ObjectProduct, ActionProductCreate},
		{ObjectPortal, ActionPortalView},
		{ObjectPortal, ActionPortalCreate},
	}
	admin := [][]string{
		{ObjectMerchant, ActionMerchantCreate},
		{ObjectMerchant, ActionMerchantRefresh},
	}

	policies := make([][]string, 0, 2*len(member)+len(admin))
	for _, p := range member {
		policies = append(policies, []string{RoleMember, p[0], p[1]}, []string{RoleAdmin, p[0], p[1]})
	}
	for _, p := range admin {
		policies = append(policies, []string{RoleAdmin, p[0], p[1]})
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
