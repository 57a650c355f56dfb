package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesSentinelAndKeepsMessage(t *testing.T) {
	cause := errors.New("upstream")
	err := fmt.Errorf("register: %w", &Error{Op: "create_price", Code: "parameter_invalid_integer", Message: "Invalid integer: 19.995", Err: cause})

	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if got := ProviderMessage(err); got != "Invalid integer: 19.995" {
		t.Fatalf("unexpected message %q", got)
	}
	if ProviderMessage(errors.New("plain")) != "" {
		t.Fatalf("expected empty message for non-provider errors")
	}
}
