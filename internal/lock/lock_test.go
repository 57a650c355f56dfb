package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func TestNilLockerIsSafe(t *testing.T) {
	var l *Locker
	if NewLocker(nil) != nil {
		t.Fatalf("expected nil locker for nil client")
	}
	_, ok, err := l.TryLock(context.Background(), MerchantKey("org_1"), time.Second)
	if ok || !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got ok=%v err=%v", ok, err)
	}
	if err := l.Release(context.Background(), "k", "t"); err != nil {
		t.Fatalf("release on nil locker: %v", err)
	}
}

func TestTryLockValidatesArguments(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	l := NewLocker(client)

	if _, _, err := l.TryLock(context.Background(), "", time.Second); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if _, _, err := l.TryLock(context.Background(), "k", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestMerchantKey(t *testing.T) {
	if got := MerchantKey("org_1"); got != "happybase:lock:merchant:org_1" {
		t.Fatalf("unexpected key %q", got)
	}
}
