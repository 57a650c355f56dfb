package ratelimit

import (
	"context"
	"errors"
	"strings"

	"github.com/happybase/portal/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "happybase:ratelimit:"

// ErrLimited is returned to callers that exhausted their bucket.
var ErrLimited = errors.New("rate_limited")

// Limiter throttles the operations that create objects at the payment
// provider. A nil Limiter allows everything.
type Limiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *Limiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil
	}
	if client == nil {
		log.Warn("rate limiting enabled without redis; requests are not throttled")
		return nil
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		log.Warn("rate limiting disabled: rate and burst must be positive",
			zap.Float64("rate", limitCfg.Rate),
			zap.Int("burst", limitCfg.Burst),
		)
		return nil
	}
	return &Limiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.Rate,
		burst:  limitCfg.Burst,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow takes one token from the bucket of scope and subject.
func (l *Limiter) Allow(ctx context.Context, scope, subject string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, Key(scope, subject), l.rate, l.burst)
}

func Key(scope, subject string) string {
	return keyPrefix + strings.TrimSpace(scope) + ":" + strings.TrimSpace(subject)
}
