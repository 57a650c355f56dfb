package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/happybase/portal/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	res, err := l.Allow(context.Background(), "merchant", "org_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected nil limiter to allow")
	}
}

func TestNewLimiterDisabled(t *testing.T) {
	log := zaptest.NewLogger(t)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	cases := []struct {
		name   string
		cfg    config.RateLimitConfig
		client *redis.Client
	}{
		{name: "not enabled", cfg: config.RateLimitConfig{Rate: 1, Burst: 1}, client: client},
		{name: "no redis", cfg: config.RateLimitConfig{Enabled: true, Rate: 1, Burst: 1}},
		{name: "zero burst", cfg: config.RateLimitConfig{Enabled: true, Rate: 1}, client: client},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if l := NewLimiter(config.Config{RateLimit: tc.cfg}, tc.client, log); l != nil {
				t.Fatalf("expected nil limiter")
			}
		})
	}

	l := NewLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, Rate: 0.5, Burst: 3}}, client, log)
	if !l.Enabled() {
		t.Fatalf("expected limiter to be enabled")
	}
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var nilBucket *TokenBucket
	if _, err := nilBucket.Allow(context.Background(), "k", 1, 1); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	bucket := NewTokenBucket(client)

	if _, err := bucket.Allow(context.Background(), "", 1, 1); err != ErrEmptyKey {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if _, err := bucket.Allow(context.Background(), "k", 0, 1); err != ErrInvalidRate {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestBucketResultRetryAfter(t *testing.T) {
	res := bucketResult(false, 0.5, 1_000, 0.25, 5)
	if res.Allowed {
		t.Fatalf("expected rejection")
	}
	if res.RetryAfter != 2*time.Second {
		t.Fatalf("expected 2s retry, got %s", res.RetryAfter)
	}
	if res.Limit != 5 || res.Remaining != 0 {
		t.Fatalf("unexpected limit %d remaining %d", res.Limit, res.Remaining)
	}

	res = bucketResult(true, 3.7, 1_000, 1, 5)
	if res.RetryAfter != 0 || res.Remaining != 3 {
		t.Fatalf("unexpected allowed result %+v", res)
	}
}

func TestDefaultBucketTTL(t *testing.T) {
	if got := defaultBucketTTL(0.5, 5); got != 20*time.Second {
		t.Fatalf("expected 20s, got %s", got)
	}
	if got := defaultBucketTTL(100, 1); got != time.Second {
		t.Fatalf("expected 1s floor, got %s", got)
	}
}

func TestCastHelpers(t *testing.T) {
	if castToFloat("2.5") != 2.5 || castToFloat(int64(3)) != 3 {
		t.Fatalf("unexpected float cast")
	}
	if castToInt("7") != 7 || castToInt(int64(1)) != 1 {
		t.Fatalf("unexpected int cast")
	}
	if Key(" portal ", "org_1") != "happybase:ratelimit:portal:org_1" {
		t.Fatalf("unexpected key %q", Key(" portal ", "org_1"))
	}
}
