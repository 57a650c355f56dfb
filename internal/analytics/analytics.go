package analytics

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Sink forwards product analytics. Delivery is best effort; callers never
// fail a request because analytics could not be enqueued.
type Sink interface {
	Identify(ctx context.Context, ev Identify)
	Track(ctx context.Context, ev Track)
}

type Identify struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

type Track struct {
	UserID     string
	Event      string
	Properties map[string]any
}

const (
	EventUserCreated          = "User Created"
	EventOrganizationCreated  = "Organization Created"
	EventInvitationSent       = "Invitation Sent"
	EventInvoicePaid          = "Invoice Paid"
	EventInvoicePaymentFailed = "Invoice Payment Failed"
	EventMerchantCreated      = "Merchant Created"
	EventPortalBroadcast      = "Portal Broadcast"
)

// UserHash signs a user id for the messenger identity verification integration.
func UserHash(secret, userID string) string {
	if secret == "" || userID == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

type NoopSink struct{}

func (NoopSink) Identify(context.Context, Identify) {}
func (NoopSink) Track(context.Context, Track)       {}
