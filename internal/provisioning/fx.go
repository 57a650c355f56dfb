package provisioning

import (
	"github.com/happybase/portal/internal/provisioning/domain"
	"github.com/happybase/portal/internal/provisioning/repository"
	"github.com/happybase/portal/internal/provisioning/service"
	"go.uber.org/fx"
)

var Module = fx.Module("provisioning.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) domain.Recorder { return s }),
)
