package webhook

import (
	"context"

	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/idempotency"
	stripeclient "github.com/alumnity/alumnity/internal/integration/stripe"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/logger"
)

// Handler is the inbound notification boundary: it verifies the
// signature, rejects misrouted events, normalizes the payload and hands
// the result to the synchronization service.
type Handler struct {
	client      *stripeclient.Client
	generator   *idempotency.Generator
	billingSync interfaces.BillingSyncService
	logger      *logger.Logger
}

func NewHandler(
	client *stripeclient.Client,
	billingSync interfaces.BillingSyncService,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		client:      client,
		generator:   idempotency.NewGenerator(),
		billingSync: billingSync,
		logger:      logger,
	}
}

// HandleWebhookEvent processes one signed notification payload.
// Signature failures and misrouted connected-account events surface as
// validation errors before any state is touched; unknown event types
// are acknowledged without side effects.
func (h *Handler) HandleWebhookEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := h.client.ParseWebhookEvent(payload, signature)
	if err != nil {
		return err
	}

	// Events scoped to a connected account belong to a different
	// endpoint; signal the sender to retry against the correct one
	// before any registration happens.
	if event.Account != "" {
		h.logger.Warnw("rejecting misrouted connected-account event",
			"event_id", event.ID,
			"event_type", event.Type,
			"account", event.Account,
		)
		return ierr.NewError("event belongs to a connected account").
			WithHint("Event was delivered to the wrong webhook endpoint").
			WithReportableDetails(map[string]interface{}{
				"event_id": event.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	normalized, err := Normalize(event, h.generator.Fingerprint(payload))
	if err != nil {
		return err
	}
	if normalized == nil {
		h.logger.Debugw("ignoring unhandled webhook event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	return h.billingSync.ProcessEvent(ctx, normalized)
}
