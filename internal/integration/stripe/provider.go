package stripe

import (
	"context"
	"time"

	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/stripe/stripe-go/v82"
)

// Provider implements interfaces.BillingProvider against the Stripe API
type Provider struct {
	client *Client
	logger *logger.Logger
}

func NewProvider(client *Client, logger *logger.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger,
	}
}

// GetSubscription retrieves a subscription with its line items expanded
func (p *Provider) GetSubscription(ctx context.Context, subscriptionID string) (*interfaces.ProviderSubscription, error) {
	params := &stripe.SubscriptionRetrieveParams{
		Expand: []*string{
			stripe.String("items.data.price"),
		},
	}

	stripeSub, err := p.client.API().V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err != nil {
		p.logger.Errorw("failed to retrieve subscription from stripe",
			"error", err,
			"subscription_id", subscriptionID,
		)
		if isNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("Subscription not found in Stripe").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": subscriptionID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Could not fetch subscription information from Stripe").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}

	return mapSubscription(stripeSub), nil
}

// AttachLineItem adds a priced line item to an existing subscription
func (p *Provider) AttachLineItem(ctx context.Context, subscriptionID, priceID string, quantity int64) (string, error) {
	params := &stripe.SubscriptionItemCreateParams{
		Subscription:      stripe.String(subscriptionID),
		Price:             stripe.String(priceID),
		Quantity:          stripe.Int64(quantity),
		ProrationBehavior: stripe.String("create_prorations"),
	}

	item, err := p.client.API().V1SubscriptionItems.Create(ctx, params)
	if err != nil {
		p.logger.Errorw("failed to attach subscription item",
			"error", err,
			"subscription_id", subscriptionID,
			"price_id", priceID,
		)
		return "", ierr.WithError(err).
			WithHint("Could not add line item to Stripe subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
				"price_id":        priceID,
			}).
			Mark(ierr.ErrIntegration)
	}
	return item.ID, nil
}

// UpdateLineItemQuantity changes the quantity of an existing line item
func (p *Provider) UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int64) error {
	params := &stripe.SubscriptionItemUpdateParams{
		Quantity:          stripe.Int64(quantity),
		ProrationBehavior: stripe.String("create_prorations"),
	}

	_, err := p.client.API().V1SubscriptionItems.Update(ctx, itemID, params)
	if err != nil {
		p.logger.Errorw("failed to update subscription item quantity",
			"error", err,
			"item_id", itemID,
			"quantity", quantity,
		)
		return ierr.WithError(err).
			WithHint("Could not update line item quantity in Stripe").
			WithReportableDetails(map[string]interface{}{
				"item_id": itemID,
			}).
			Mark(ierr.ErrIntegration)
	}
	return nil
}

// RemoveLineItem detaches a line item from its subscription
func (p *Provider) RemoveLineItem(ctx context.Context, itemID string) error {
	params := &stripe.SubscriptionItemDeleteParams{
		ProrationBehavior: stripe.String("create_prorations"),
	}

	_, err := p.client.API().V1SubscriptionItems.Delete(ctx, itemID, params)
	if err != nil {
		p.logger.Errorw("failed to remove subscription item",
			"error", err,
			"item_id", itemID,
		)
		return ierr.WithError(err).
			WithHint("Could not remove line item from Stripe subscription").
			WithReportableDetails(map[string]interface{}{
				"item_id": itemID,
			}).
			Mark(ierr.ErrIntegration)
	}
	return nil
}

// CancelSubscription cancels a subscription immediately. A subscription
// Stripe no longer knows about is treated as already canceled.
func (p *Provider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}

	_, err := p.client.API().V1Subscriptions.Cancel(ctx, subscriptionID, params)
	if err != nil {
		if isNotFound(err) {
			p.logger.Infow("subscription already gone on stripe, skipping cancel",
				"subscription_id", subscriptionID,
			)
			return nil
		}
		p.logger.Errorw("failed to cancel stripe subscription",
			"error", err,
			"subscription_id", subscriptionID,
		)
		return ierr.WithError(err).
			WithHint("Could not cancel Stripe subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}
	return nil
}

// CreateCheckoutSession starts a hosted checkout flow in subscription mode
func (p *Provider) CreateCheckoutSession(ctx context.Context, req *interfaces.CheckoutSessionRequest) (*interfaces.CheckoutSession, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String("subscription"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(req.Quantity),
			},
		},
		Metadata: req.Metadata,
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: req.Metadata,
		},
	}
	if req.SuccessURL != "" {
		params.SuccessURL = stripe.String(req.SuccessURL)
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}

	session, err := p.client.API().V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		p.logger.Errorw("failed to create stripe checkout session",
			"error", err,
			"price_id", req.PriceID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create Stripe checkout session").
			WithReportableDetails(map[string]interface{}{
				"price_id": req.PriceID,
			}).
			Mark(ierr.ErrIntegration)
	}

	return &interfaces.CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

// mapSubscription reduces a Stripe subscription to the provider-neutral
// view. Period end lives on the subscription items in the pinned API
// version, so the latest item period end stands in for the subscription.
func mapSubscription(stripeSub *stripe.Subscription) *interfaces.ProviderSubscription {
	sub := &interfaces.ProviderSubscription{
		ID:                stripeSub.ID,
		Status:            string(stripeSub.Status),
		CancelAtPeriodEnd: stripeSub.CancelAtPeriodEnd,
		Metadata:          stripeSub.Metadata,
	}
	if stripeSub.Customer != nil {
		sub.CustomerID = stripeSub.Customer.ID
	}

	if stripeSub.Items == nil {
		return sub
	}

	var periodEnd int64
	for _, item := range stripeSub.Items.Data {
		lineItem := interfaces.ProviderLineItem{
			ID:       item.ID,
			Quantity: item.Quantity,
		}
		if item.Price != nil {
			lineItem.PriceID = item.Price.ID
			if item.Price.Recurring != nil && item.Price.Recurring.Interval == stripe.PriceRecurringIntervalYear {
				lineItem.Interval = types.BillingIntervalYear
			} else {
				lineItem.Interval = types.BillingIntervalMonth
			}
		}
		sub.Items = append(sub.Items, lineItem)

		if item.CurrentPeriodEnd > periodEnd {
			periodEnd = item.CurrentPeriodEnd
		}
	}
	if periodEnd > 0 {
		end := time.Unix(periodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}
	return sub
}

func isNotFound(err error) bool {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
