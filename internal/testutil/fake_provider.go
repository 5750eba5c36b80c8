package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
)

// LineItemCall records one mutating call against the fake provider
type LineItemCall struct {
	SubscriptionID string
	ItemID         string
	PriceID        string
	Quantity       int64
}

// FakeBillingProvider implements interfaces.BillingProvider with an
// in-memory subscription state. Mutations are applied to the state and
// recorded, so tests can assert both the calls made and the state the
// provider converged to.
type FakeBillingProvider struct {
	mu            sync.Mutex
	subscriptions map[string]*interfaces.ProviderSubscription
	nextItem      int

	AttachCalls   []LineItemCall
	UpdateCalls   []LineItemCall
	RemoveCalls   []string
	CancelCalls   []string
	CheckoutCalls []*interfaces.CheckoutSessionRequest

	// GetErr, when set, is returned by GetSubscription
	GetErr error
}

func NewFakeBillingProvider() *FakeBillingProvider {
	return &FakeBillingProvider{
		subscriptions: make(map[string]*interfaces.ProviderSubscription),
	}
}

// SetSubscription seeds the provider-side state for a subscription
func (p *FakeBillingProvider) SetSubscription(sub *interfaces.ProviderSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscriptions[sub.ID] = sub
}

// Subscription returns the provider-side state for assertions
func (p *FakeBillingProvider) Subscription(id string) (*interfaces.ProviderSubscription, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subscriptions[id]
	return sub, ok
}

func (p *FakeBillingProvider) GetSubscription(ctx context.Context, subscriptionID string) (*interfaces.ProviderSubscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.GetErr != nil {
		return nil, p.GetErr
	}
	sub, exists := p.subscriptions[subscriptionID]
	if !exists {
		return nil, ierr.NewError("subscription not found on provider").
			Mark(ierr.ErrNotFound)
	}
	clone := *sub
	clone.Items = append([]interfaces.ProviderLineItem(nil), sub.Items...)
	return &clone, nil
}

func (p *FakeBillingProvider) AttachLineItem(ctx context.Context, subscriptionID, priceID string, quantity int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, exists := p.subscriptions[subscriptionID]
	if !exists {
		return "", ierr.NewError("subscription not found on provider").
			Mark(ierr.ErrNotFound)
	}
	p.nextItem++
	itemID := fmt.Sprintf("si_test_%03d", p.nextItem)
	sub.Items = append(sub.Items, interfaces.ProviderLineItem{
		ID:       itemID,
		PriceID:  priceID,
		Quantity: quantity,
	})
	p.AttachCalls = append(p.AttachCalls, LineItemCall{
		SubscriptionID: subscriptionID,
		ItemID:         itemID,
		PriceID:        priceID,
		Quantity:       quantity,
	})
	return itemID, nil
}

func (p *FakeBillingProvider) UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subscriptions {
		for i := range sub.Items {
			if sub.Items[i].ID == itemID {
				sub.Items[i].Quantity = quantity
				p.UpdateCalls = append(p.UpdateCalls, LineItemCall{
					SubscriptionID: sub.ID,
					ItemID:         itemID,
					PriceID:        sub.Items[i].PriceID,
					Quantity:       quantity,
				})
				return nil
			}
		}
	}
	return ierr.NewError("line item not found on provider").
		Mark(ierr.ErrNotFound)
}

func (p *FakeBillingProvider) RemoveLineItem(ctx context.Context, itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subscriptions {
		for i := range sub.Items {
			if sub.Items[i].ID == itemID {
				sub.Items = append(sub.Items[:i], sub.Items[i+1:]...)
				p.RemoveCalls = append(p.RemoveCalls, itemID)
				return nil
			}
		}
	}
	return ierr.NewError("line item not found on provider").
		Mark(ierr.ErrNotFound)
}

func (p *FakeBillingProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CancelCalls = append(p.CancelCalls, subscriptionID)
	if sub, exists := p.subscriptions[subscriptionID]; exists {
		sub.Status = "canceled"
	}
	return nil
}

func (p *FakeBillingProvider) CreateCheckoutSession(ctx context.Context, req *interfaces.CheckoutSessionRequest) (*interfaces.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CheckoutCalls = append(p.CheckoutCalls, req)
	id := fmt.Sprintf("cs_test_%03d", len(p.CheckoutCalls))
	return &interfaces.CheckoutSession{
		ID:  id,
		URL: "https://checkout.example.com/" + id,
	}, nil
}

func (p *FakeBillingProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscriptions = make(map[string]*interfaces.ProviderSubscription)
	p.nextItem = 0
	p.AttachCalls = nil
	p.UpdateCalls = nil
	p.RemoveCalls = nil
	p.CancelCalls = nil
	p.CheckoutCalls = nil
	p.GetErr = nil
}
