package v1

import (
	"io"
	"net/http"

	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/integration/stripe/webhook"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes bounds inbound notification payloads
const maxWebhookBodyBytes = 65536

// WebhookHandler handles inbound provider notifications
type WebhookHandler struct {
	handler *webhook.Handler
	logger  *logger.Logger
}

func NewWebhookHandler(handler *webhook.Handler, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		handler: handler,
		logger:  logger,
	}
}

// HandleStripeWebhook processes one signed notification. It returns
// 200 {received:true} once the event is durably marked processed —
// including duplicate deliveries and validated-but-rejected ownership
// mismatches — and a non-2xx exactly when redelivery is wanted.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.Error(ierr.NewError("missing webhook signature").
			WithHint("Stripe-Signature header is required").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.handler.HandleWebhookEvent(c.Request.Context(), payload, signature); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
