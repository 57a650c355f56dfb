package identity

import (
	"github.com/happybase/portal/internal/identity/clerk"
	"github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/identity/session"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(
		clerk.New,
		func(d *clerk.Directory) domain.Directory { return d },
		session.New,
	),
)
