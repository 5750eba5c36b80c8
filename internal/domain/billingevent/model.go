package billingevent

import (
	"time"

	"github.com/alumnity/alumnity/internal/types"
)

// IdempotencyRecord marks an externally-generated event id as seen. A
// row stamped with ProcessedAt means the event must not be re-applied;
// an unstamped row marks a delivery whose handling failed and is run
// again on redelivery.
type IdempotencyRecord struct {
	EventID     string                 `db:"event_id" json:"event_id"`
	EventType   types.WebhookEventType `db:"event_type" json:"event_type"`
	Fingerprint string                 `db:"fingerprint" json:"fingerprint"`
	ReceivedAt  time.Time              `db:"received_at" json:"received_at"`
	ProcessedAt *time.Time             `db:"processed_at" json:"processed_at"`
}

func New(eventID string, eventType types.WebhookEventType, fingerprint string) *IdempotencyRecord {
	return &IdempotencyRecord{
		EventID:     eventID,
		EventType:   eventType,
		Fingerprint: fingerprint,
		ReceivedAt:  time.Now().UTC(),
	}
}
