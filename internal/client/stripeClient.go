package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	stripeapi "github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"prompt-storefront/internal/config"
	"prompt-storefront/internal/model"
)

type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, params *model.CreateSessionParams) (*model.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	ParseWebhookEvent(payload []byte, signature string) (*model.ProviderEvent, error)
}

type stripeClientImpl struct {
	api           *stripeapi.API
	webhookSecret string
}

func NewStripeClient(cfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		api:           stripeapi.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, p *model.CreateSessionParams) (*model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(p.Mode)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.ClientReferenceID),
	}
	params.Context = ctx

	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	if p.Mode == model.CheckoutModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		}
	}

	for _, item := range p.LineItems {
		priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(p.Currency),
			UnitAmount: stripe.Int64(item.UnitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(item.Name),
			},
		}
		if item.RecurringEvery != "" {
			priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(item.RecurringEvery),
			}
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: priceData,
			Quantity:  stripe.Int64(item.Quantity),
		})
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}

	return toCheckoutSession(sess), nil
}

func (c *stripeClientImpl) GetCheckoutSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session %s: %w", sessionID, err)
	}

	return toCheckoutSession(sess), nil
}

func (c *stripeClientImpl) ParseWebhookEvent(payload []byte, signature string) (*model.ProviderEvent, error) {
	if c.webhookSecret == "" {
		return nil, errors.New("stripe webhook secret not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	out := &model.ProviderEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = toCheckoutSession(&sess)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.SubscriptionID = sub.ID
	}

	return out, nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *model.CheckoutSession {
	out := &model.CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		CustomerEmail:     s.CustomerEmail,
		ClientReferenceID: s.ClientReferenceID,
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
		Metadata:          s.Metadata,
	}

	// customer_details holds the email actually used at checkout
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}

	return out
}
