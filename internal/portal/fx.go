package portal

import (
	"github.com/happybase/portal/internal/portal/repository"
	"github.com/happybase/portal/internal/portal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("portal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
