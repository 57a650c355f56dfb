package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	merchantdomain "github.com/happybase/portal/internal/merchant/domain"
	paymentproviderdomain "github.com/happybase/portal/internal/paymentprovider/domain"
	productdomain "github.com/happybase/portal/internal/product/domain"
	webhookdomain "github.com/happybase/portal/internal/webhook/domain"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		errType string
		field   string
		message string
	}{
		{name: "invalid price", err: fmt.Errorf("register: %w", productdomain.ErrInvalidPrice), status: http.StatusBadRequest, errType: "validation_error", field: "price"},
		{name: "invalid interval", err: productdomain.ErrInvalidInterval, status: http.StatusBadRequest, errType: "validation_error", field: "interval"},
		{name: "webhook signature", err: webhookdomain.ErrInvalidSignature, status: http.StatusBadRequest, errType: "invalid_signature"},
		{name: "webhook payload is not a signature failure", err: webhookdomain.ErrInvalidPayload, status: http.StatusInternalServerError, errType: "internal_error"},
		{name: "webhook not configured", err: webhookdomain.ErrNotConfigured, status: http.StatusInternalServerError, errType: "internal_error"},
		{name: "record not found", err: gorm.ErrRecordNotFound, status: http.StatusNotFound, errType: "not_found"},
		{
			name: "provider error",
			err: fmt.Errorf("%w: %w", merchantdomain.ErrPaymentAccount, &paymentproviderdomain.Error{
				Op:      "create_account",
				Message: "Your account cannot currently make live charges.",
				Err:     errors.New("stripe"),
			}),
			status:  http.StatusInternalServerError,
			errType: "payment_provider_error",
			message: "Your account cannot currently make live charges.",
		},
		{name: "provider error without message", err: merchantdomain.ErrPaymentAccount, status: http.StatusInternalServerError, errType: "payment_provider_error", message: "payment provider error"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, errType: "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if payload.Type != tc.errType {
				t.Fatalf("expected type %q, got %q", tc.errType, payload.Type)
			}
			if tc.field != "" {
				if len(payload.Errors) != 1 || payload.Errors[0].Field != tc.field {
					t.Fatalf("expected field %q, got %+v", tc.field, payload.Errors)
				}
			}
			if tc.message != "" && payload.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, payload.Message)
			}
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(fmt.Errorf("lookup: %w", merchantdomain.ErrNotFound))
	if errType != "not_found" || code != "merchant_not_found" {
		t.Fatalf("unexpected classification %q %q", errType, code)
	}

	errType, code = classifyErrorForLog(productdomain.ErrInvalidPrice)
	if errType != "validation_error" || code != "invalid_price" {
		t.Fatalf("unexpected classification %q %q", errType, code)
	}
}
