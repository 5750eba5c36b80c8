package paymentattempt

import (
	"context"
)

type Repository interface {
	// Create is called by the checkout-initiation flow only. Webhook
	// processing reads attempts, never writes them.
	Create(ctx context.Context, attempt *PaymentAttempt) error
	GetByID(ctx context.Context, id string) (*PaymentAttempt, error)
	SetProviderSessionID(ctx context.Context, id, providerSessionID string) error
}
