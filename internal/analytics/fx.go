package analytics

import (
	"context"

	"github.com/happybase/portal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("analytics",
	fx.Provide(NewSink),
)

// NewSink returns the configured sink, or a no-op sink when no write key is set.
func NewSink(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Sink, error) {
	if cfg.Analytics.WriteKey == "" {
		log.Info("analytics disabled: no write key configured")
		return NoopSink{}, nil
	}
	sink, err := NewSegmentSink(cfg.Analytics, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sink.Close()
		},
	})
	return sink, nil
}
