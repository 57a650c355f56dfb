package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	clerksdk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/invitation"
	"github.com/clerk/clerk-sdk-go/v2/organization"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/happybase/portal/internal/config"
	"github.com/happybase/portal/internal/identity/domain"
	"go.uber.org/zap"
)

// Directory reads and writes users, organizations and invitations in Clerk.
type Directory struct {
	users         *user.Client
	organizations *organization.Client
	invitations   *invitation.Client
	log           *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) (*Directory, error) {
	key := strings.TrimSpace(cfg.Clerk.SecretKey)
	if key == "" {
		return nil, errors.New("clerk secret key is required")
	}
	clientCfg := &clerksdk.ClientConfig{
		BackendConfig: clerksdk.BackendConfig{Key: clerksdk.String(key)},
	}
	return &Directory{
		users:         user.NewClient(clientCfg),
		organizations: organization.NewClient(clientCfg),
		invitations:   invitation.NewClient(clientCfg),
		log:           log.Named("clerk"),
	}, nil
}

func (d *Directory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return nil, d.wrap("get_user", err)
	}

	out := &domain.User{
		ID:        u.ID,
		FirstName: deref(u.FirstName),
		LastName:  deref(u.LastName),
		Email:     primaryEmail(u),
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
	out.PublicMetadata = decodeMetadata(u.PublicMetadata)
	return out, nil
}

func (d *Directory) UpdateUserPublicMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	msg := json.RawMessage(raw)
	if _, err := d.users.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{PublicMetadata: &msg}); err != nil {
		return d.wrap("update_user_metadata", err)
	}
	return nil
}

func (d *Directory) GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	org, err := d.organizations.Get(ctx, orgID)
	if err != nil {
		return nil, d.wrap("get_organization", err)
	}
	return &domain.Organization{
		ID:             org.ID,
		Name:           org.Name,
		PublicMetadata: decodeMetadata(org.PublicMetadata),
	}, nil
}

func (d *Directory) CreateInvitation(ctx context.Context, req domain.InvitationRequest) (*domain.Invitation, error) {
	params := &invitation.CreateParams{EmailAddress: req.Email}
	if req.RedirectURL != "" {
		params.RedirectURL = clerksdk.String(req.RedirectURL)
	}
	if len(req.PublicMetadata) > 0 {
		raw, err := json.Marshal(req.PublicMetadata)
		if err != nil {
			return nil, err
		}
		msg := json.RawMessage(raw)
		params.PublicMetadata = &msg
	}

	inv, err := d.invitations.Create(ctx, params)
	if err != nil {
		return nil, d.wrap("create_invitation", err)
	}
	return &domain.Invitation{ID: inv.ID, Email: inv.EmailAddress, Status: inv.Status}, nil
}

func (d *Directory) wrap(op string, err error) error {
	var apiErr *clerksdk.APIErrorResponse
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	d.log.Warn("clerk request failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %v", op, domain.ErrDirectory, err)
}

func primaryEmail(u *clerksdk.User) string {
	primary := deref(u.PrimaryEmailAddressID)
	for _, addr := range u.EmailAddresses {
		if addr == nil {
			continue
		}
		if primary == "" || addr.ID == primary {
			return addr.EmailAddress
		}
	}
	return ""
}

func decodeMetadata(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ domain.Directory = (*Directory)(nil)
