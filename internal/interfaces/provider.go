package interfaces

import (
	"context"
	"time"

	"github.com/alumnity/alumnity/internal/types"
)

// BillingProvider abstracts the payment provider's subscription surface.
// The concrete implementation lives in internal/integration/stripe; tests
// substitute an in-memory fake.
type BillingProvider interface {
	// GetSubscription fetches the provider's current view of a
	// subscription, including its line items
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)

	// AttachLineItem adds a priced line item to an existing subscription
	// and returns the new item's id
	AttachLineItem(ctx context.Context, subscriptionID, priceID string, quantity int64) (string, error)

	// UpdateLineItemQuantity changes the quantity of an existing line item
	UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int64) error

	// RemoveLineItem detaches a line item from its subscription
	RemoveLineItem(ctx context.Context, itemID string) error

	// CancelSubscription cancels a subscription immediately. A subscription
	// the provider no longer knows about is not an error.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// CreateCheckoutSession starts a hosted checkout flow and returns the
	// session the buyer is redirected to
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)
}

// ProviderSubscription is the provider's view of a subscription, reduced
// to the fields synchronization needs
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	Items             []ProviderLineItem
	Metadata          map[string]string
}

// ProviderLineItem is one priced line on a provider subscription
type ProviderLineItem struct {
	ID       string
	PriceID  string
	Quantity int64
	Interval types.BillingInterval
}

// Item returns the line item with the given price id, if present
func (s *ProviderSubscription) Item(priceID string) (ProviderLineItem, bool) {
	for _, item := range s.Items {
		if item.PriceID == priceID {
			return item, true
		}
	}
	return ProviderLineItem{}, false
}

// CheckoutSessionRequest carries everything needed to start a hosted
// checkout. Metadata is echoed back on the resulting webhook events and
// carries the payment attempt linkage.
type CheckoutSessionRequest struct {
	PriceID    string
	Quantity   int64
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the created hosted checkout session
type CheckoutSession struct {
	ID  string
	URL string
}
