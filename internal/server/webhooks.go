package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	obslogger "github.com/happybase/portal/internal/observability/logger"
)

// maxWebhookBody bounds provider payloads. Stripe caps events well below this.
const maxWebhookBody = 1 << 20

func (s *Server) HandleClerkWebhook(c *gin.Context) {
	s.handleWebhook(c, s.webhooks.HandleIdentity)
}

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	s.handleWebhook(c, s.webhooks.HandlePayments)
}

func (s *Server) HandleStripeConnectWebhook(c *gin.Context) {
	s.handleWebhook(c, s.webhooks.HandleConnect)
}

func (s *Server) handleWebhook(c *gin.Context, handle func(context.Context, []byte, http.Header) error) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if eventType := webhookEventType(payload); eventType != "" {
		c.Set(obslogger.WebhookEventTypeKey, eventType)
	}

	if err := handle(c.Request.Context(), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// webhookEventType reads the top-level "type" field shared by Stripe and Clerk
// payloads. Malformed bodies are left to the verifier to reject.
func webhookEventType(payload []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	return envelope.Type
}
