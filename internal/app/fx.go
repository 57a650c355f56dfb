package app

import (
	"github.com/happybase/portal/internal/app/repository"
	"github.com/happybase/portal/internal/app/service"
	"go.uber.org/fx"
)

var Module = fx.Module("app.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
