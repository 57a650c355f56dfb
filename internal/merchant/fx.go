package merchant

import (
	"github.com/happybase/portal/internal/lock"
	"github.com/happybase/portal/internal/merchant/domain"
	"github.com/happybase/portal/internal/merchant/repository"
	"github.com/happybase/portal/internal/merchant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideLocker),
	fx.Provide(service.New),
)

func provideLocker(l *lock.Locker) domain.Locker {
	if l == nil {
		return nil
	}
	return l
}
