package stripe

import (
	"github.com/alumnity/alumnity/internal/config"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client handles Stripe API client setup and webhook verification
type Client struct {
	sc            *stripe.Client
	webhookSecret string
	logger        *logger.Logger
}

// NewClient creates a new Stripe client from configuration
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		sc:            stripe.NewClient(cfg.Stripe.SecretKey, nil),
		webhookSecret: cfg.Stripe.WebhookSecret,
		logger:        logger,
	}
}

// API returns the underlying Stripe API client
func (c *Client) API() *stripe.Client {
	return c.sc
}

// ParseWebhookEvent parses a Stripe webhook event with signature verification
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	// Verify the webhook signature, ignoring API version mismatch
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, options)
	if err != nil {
		c.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}
