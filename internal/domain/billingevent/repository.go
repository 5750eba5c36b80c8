package billingevent

import (
	"context"
)

type Repository interface {
	// Register records the event id atomically and reports whether a
	// previous delivery already completed. A row that was registered but
	// never marked processed belongs to a delivery whose handler failed;
	// it does not count as processed, so the provider's redelivery runs
	// the handler again. Handlers are idempotent, which also makes the
	// concurrent-delivery race safe.
	Register(ctx context.Context, record *IdempotencyRecord) (alreadyProcessed bool, err error)

	// MarkProcessed stamps the record once handling completed. An event
	// registered but never marked is left for the provider's redelivery
	// to resolve; handlers are idempotent either way.
	MarkProcessed(ctx context.Context, eventID string) error

	Get(ctx context.Context, eventID string) (*IdempotencyRecord, error)
}
