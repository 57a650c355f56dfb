package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	appdomain "github.com/happybase/portal/internal/app/domain"
	"github.com/happybase/portal/internal/authorization"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	merchantdomain "github.com/happybase/portal/internal/merchant/domain"
	paymentproviderdomain "github.com/happybase/portal/internal/paymentprovider/domain"
	portaldomain "github.com/happybase/portal/internal/portal/domain"
	productdomain "github.com/happybase/portal/internal/product/domain"
	"github.com/happybase/portal/internal/ratelimit"
	webhookdomain "github.com/happybase/portal/internal/webhook/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

const appNotFoundMessage = "app not found or insufficient permission"

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

// bindingError turns validator failures into field errors.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidRequestError()
	}
	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    fe.Tag(),
			Message: field + " is " + fe.Tag(),
		})
	}
	return out
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, webhookdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "invalid webhook signature",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrUnauthenticated),
		errors.Is(err, identitydomain.ErrNoOrganization),
		errors.Is(err, appdomain.ErrInvalidCreator):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, merchantdomain.ErrPermission):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, portaldomain.ErrAppNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: appNotFoundMessage,
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, portaldomain.ErrAlreadyBroadcast):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "app is already broadcast",
		}
	case errors.Is(err, ratelimit.ErrLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, merchantdomain.ErrCreationInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "merchant creation in progress",
		}
	case errors.Is(err, merchantdomain.ErrPaymentAccount),
		errors.Is(err, paymentproviderdomain.ErrProvider):
		message := paymentproviderdomain.ProviderMessage(err)
		if message == "" {
			message = "payment provider error"
		}
		return http.StatusInternalServerError, errorPayload{
			Type:    "payment_provider_error",
			Message: message,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the response type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil {
		code = rootCode(err)
	}
	return payload.Type, code
}

func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidInterval,
	productdomain.ErrInvalidMerchant,
	productdomain.ErrInvalidOrganization,
	appdomain.ErrInvalidName,
	appdomain.ErrInvalidURL,
	appdomain.ErrInvalidID,
	appdomain.ErrDomainMismatch,
	merchantdomain.ErrInvalidOrganization,
	portaldomain.ErrInvalidID,
}

func isValidationError(err error) bool {
	return matchedValidationError(err) != nil
}

func matchedValidationError(err error) error {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, appdomain.ErrNotFound),
		errors.Is(err, merchantdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, portaldomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if target := matchedValidationError(err); target != nil {
		return target.Error()
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == appdomain.ErrDomainMismatch.Error() {
		return "url"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_price":
		return "price must be a positive amount with at most two decimals"
	case "invalid_interval":
		return "interval must be one of monthly, quarterly, yearly"
	case "app_domain_mismatch":
		return "url does not match the app's domain"
	default:
		return "invalid value"
	}
}
