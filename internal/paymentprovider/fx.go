package paymentprovider

import (
	"github.com/happybase/portal/internal/paymentprovider/domain"
	"github.com/happybase/portal/internal/paymentprovider/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.provider",
	fx.Provide(
		stripe.New,
		func(c *stripe.Client) domain.Provider { return c },
	),
)
