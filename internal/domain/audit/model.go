package audit

import (
	"context"
	"time"

	"github.com/alumnity/alumnity/internal/types"
)

// Action names a recorded operator-visible action
type Action string

const (
	ActionAdjustBilling         Action = "adjust_billing"
	ActionBillingReconciled     Action = "billing_reconciled"
	ActionBillingUpdateUnsaved  Action = "billing_update_unsaved"
	ActionOwnershipMismatch     Action = "ownership_mismatch"
	ActionMissingPaymentAttempt Action = "missing_payment_attempt"
	ActionCheckoutInitiated     Action = "checkout_initiated"
	ActionTenantProvisioned     Action = "tenant_provisioned"
)

// Event is a structured action record handed to the audit sink
type Event struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     Action         `json:"action"`
	TenantID   string         `json:"tenant_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// NewEvent builds an event with the actor taken from the request context
func NewEvent(ctx context.Context, action Action, tenantID string, metadata map[string]any) Event {
	return Event{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		ActorID:    types.GetUserID(ctx),
		Action:     action,
		TenantID:   tenantID,
		Metadata:   metadata,
		RecordedAt: time.Now().UTC(),
	}
}

// Sink receives audit events. The billing core only ever calls Record;
// delivery, retention and querying live elsewhere. Record failures are
// logged by callers and never fail the surrounding operation.
type Sink interface {
	Record(ctx context.Context, event Event) error
}
