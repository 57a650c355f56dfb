package product

import (
	"github.com/happybase/portal/internal/product/repository"
	"github.com/happybase/portal/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewRegistrar),
	fx.Provide(service.New),
)
