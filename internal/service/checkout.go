package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"prompt-storefront/internal/activity"
	"prompt-storefront/internal/auth"
	"prompt-storefront/internal/client"
	"prompt-storefront/internal/common"
	"prompt-storefront/internal/config"
	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
)

type ActivityPublisher interface {
	Publish(e activity.Event)
}

type CheckoutService interface {
	CreatePayment(ctx context.Context, caller *auth.Identity, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	VerifyPayment(ctx context.Context, caller *auth.Identity, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error)
	ReconcileOrders(ctx context.Context, caller *auth.Identity) (*dto.ReconcileResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type checkoutServiceImpl struct {
	db               *gorm.DB
	log              logging.Logger
	stripeClient     client.StripeClient
	cipher           *cryptox.FieldCipher
	publisher        ActivityPublisher
	pricing          config.Pricing
	currency         string
	baseURL          string
	catalogRepo      repository.CatalogRepository
	orderRepo        repository.OrderRepository
	entitlementRepo  repository.EntitlementRepository
	subscriberRepo   repository.SubscriberRepository
	webhookEventRepo repository.WebhookEventRepository
}

func NewCheckoutService(
	db *gorm.DB,
	log logging.Logger,
	stripeClient client.StripeClient,
	cipher *cryptox.FieldCipher,
	publisher ActivityPublisher,
	pricing config.Pricing,
	currency string,
	baseURL string,
	catalogRepo repository.CatalogRepository,
	orderRepo repository.OrderRepository,
	entitlementRepo repository.EntitlementRepository,
	subscriberRepo repository.SubscriberRepository,
	webhookEventRepo repository.WebhookEventRepository,
) CheckoutService {
	return &checkoutServiceImpl{
		db:               db,
		log:              log.With("component", "checkout"),
		stripeClient:     stripeClient,
		cipher:           cipher,
		publisher:        publisher,
		pricing:          pricing,
		currency:         strings.ToLower(currency),
		baseURL:          strings.TrimRight(baseURL, "/"),
		catalogRepo:      catalogRepo,
		orderRepo:        orderRepo,
		entitlementRepo:  entitlementRepo,
		subscriberRepo:   subscriberRepo,
		webhookEventRepo: webhookEventRepo,
	}
}

func (s *checkoutServiceImpl) CreatePayment(ctx context.Context, caller *auth.Identity, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	if caller.Email == "" {
		return nil, fmt.Errorf("%w: an email address is required to check out", common.ErrValidation)
	}

	mode, err := checkCart(req)
	if err != nil {
		return nil, err
	}

	orderItems, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total := int64(0)
	for _, item := range orderItems {
		total += item.UnitPriceCents * item.Quantity
	}

	order := &model.Order{
		ID:          uuid.NewString(),
		UserID:      caller.UserID,
		EmailHash:   s.cipher.HashEmail(caller.Email),
		Status:      model.OrderStatusPending,
		Mode:        mode,
		AmountCents: total,
		Currency:    s.currency,
	}
	for _, item := range orderItems {
		item.OrderID = order.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}

		if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("store order items in db: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := s.stripeClient.CreateCheckoutSession(ctx, s.sessionParams(order, orderItems, caller))
	if err != nil {
		s.log.Error(ctx, "create checkout session failed", "order_id", order.ID, "user_id", caller.UserID, "error", err)
		if uerr := s.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusFailed); uerr != nil {
			s.log.Error(ctx, "mark order failed", "order_id", order.ID, "error", uerr)
		}
		return nil, fmt.Errorf("%w: could not start checkout", common.ErrProvider)
	}

	if err := s.orderRepo.SetSessionID(ctx, order.ID, session.ID); err != nil {
		s.log.Error(ctx, "store checkout session id failed",
			"order_id", order.ID, "session_id", session.ID, "error", err)
		// without the session id nobody can pay or verify this order
		if uerr := s.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusFailed); uerr != nil {
			s.log.Error(ctx, "mark order failed", "order_id", order.ID, "error", uerr)
		}
		return nil, fmt.Errorf("store checkout session id: %w", err)
	}

	s.log.Info(ctx, "checkout session created",
		"order_id", order.ID, "user_id", caller.UserID, "amount_cents", total, "mode", mode)

	return &dto.CreatePaymentResponse{
		OrderID:   order.ID,
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

// checkCart enforces the cart composition rules and resolves the checkout mode.
// Missing quantities are normalized to 1 in place.
func checkCart(req *dto.CreatePaymentRequest) (model.CheckoutMode, error) {
	if len(req.Items) == 0 {
		return "", fmt.Errorf("%w: at least one item is required", common.ErrValidation)
	}

	var hasLifetime, hasMembership bool
	seen := make(map[string]bool)
	for _, item := range req.Items {
		if item == nil {
			return "", fmt.Errorf("%w: empty item", common.ErrValidation)
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.Quantity < 0 {
			return "", fmt.Errorf("%w: quantity must be at least 1", common.ErrValidation)
		}

		itemType := model.ItemType(item.Type)
		if !itemType.Valid() {
			return "", fmt.Errorf("%w: unknown item type %q", common.ErrValidation, item.Type)
		}

		switch itemType {
		case model.ItemTypeLifetime:
			hasLifetime = true
		case model.ItemTypeMembership:
			hasMembership = true
		case model.ItemTypePrompt, model.ItemTypePack:
			if item.ID == "" {
				return "", fmt.Errorf("%w: %s item needs an id", common.ErrValidation, itemType)
			}
			key := item.Type + ":" + item.ID
			if seen[key] {
				return "", fmt.Errorf("%w: %s %q listed twice", common.ErrValidation, itemType, item.ID)
			}
			seen[key] = true
		}

		if itemType.GrantsSubscriber() && item.Quantity != 1 {
			return "", fmt.Errorf("%w: %s quantity must be 1", common.ErrValidation, itemType)
		}
	}

	if hasLifetime && len(req.Items) > 1 {
		return "", fmt.Errorf("%w: lifetime access must be purchased on its own", common.ErrValidation)
	}

	if hasMembership {
		if len(req.Items) > 1 {
			return "", fmt.Errorf("%w: membership cannot be combined with one-time items", common.ErrValidation)
		}
		if req.Mode == string(model.CheckoutModePayment) {
			return "", fmt.Errorf("%w: membership requires subscription mode", common.ErrValidation)
		}
		return model.CheckoutModeSubscription, nil
	}

	if req.Mode == string(model.CheckoutModeSubscription) {
		return "", fmt.Errorf("%w: subscription mode requires a membership item", common.ErrValidation)
	}

	return model.CheckoutModePayment, nil
}

// priceItems snapshots titles and prices from the catalog and plan pricing.
func (s *checkoutServiceImpl) priceItems(ctx context.Context, items []*dto.CheckoutItem) ([]*model.OrderItem, error) {
	var promptIDs, packIDs []string
	for _, item := range items {
		switch model.ItemType(item.Type) {
		case model.ItemTypePrompt:
			promptIDs = append(promptIDs, item.ID)
		case model.ItemTypePack:
			packIDs = append(packIDs, item.ID)
		}
	}

	prompts := make(map[string]*model.Prompt)
	if len(promptIDs) > 0 {
		found, err := s.catalogRepo.FindPrompts(ctx, promptIDs)
		if err != nil {
			return nil, fmt.Errorf("get prompts: %w", err)
		}
		for _, p := range found {
			prompts[p.ID] = p
		}
	}

	packs := make(map[string]*model.Pack)
	if len(packIDs) > 0 {
		found, err := s.catalogRepo.FindPacks(ctx, packIDs)
		if err != nil {
			return nil, fmt.Errorf("get packs: %w", err)
		}
		for _, p := range found {
			packs[p.ID] = p
		}
	}

	out := make([]*model.OrderItem, 0, len(items))
	for _, item := range items {
		orderItem := &model.OrderItem{
			ItemType: model.ItemType(item.Type),
			Quantity: item.Quantity,
		}

		switch orderItem.ItemType {
		case model.ItemTypePrompt:
			p, ok := prompts[item.ID]
			if !ok {
				return nil, fmt.Errorf("%w: unknown prompt %q", common.ErrValidation, item.ID)
			}
			if p.IsFree || !p.Price.IsPositive() {
				return nil, fmt.Errorf("%w: prompt %q is free", common.ErrValidation, item.ID)
			}
			orderItem.ItemID, orderItem.Title, orderItem.UnitPriceCents = p.ID, p.Title, toCents(p.Price)
		case model.ItemTypePack:
			p, ok := packs[item.ID]
			if !ok {
				return nil, fmt.Errorf("%w: unknown pack %q", common.ErrValidation, item.ID)
			}
			if !p.Price.IsPositive() {
				return nil, fmt.Errorf("%w: pack %q is not for sale", common.ErrValidation, item.ID)
			}
			orderItem.ItemID, orderItem.Title, orderItem.UnitPriceCents = p.ID, p.Title, toCents(p.Price)
		case model.ItemTypeLifetime:
			orderItem.Title, orderItem.UnitPriceCents = "Lifetime access", s.pricing.LifetimeCents
		case model.ItemTypeMembership:
			orderItem.Title, orderItem.UnitPriceCents = "Membership", s.pricing.MembershipCents
		}

		out = append(out, orderItem)
	}

	return out, nil
}

func toCents(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

func (s *checkoutServiceImpl) sessionParams(order *model.Order, items []*model.OrderItem, caller *auth.Identity) *model.CreateSessionParams {
	lineItems := make([]model.CheckoutLineItem, 0, len(items))
	for _, item := range items {
		li := model.CheckoutLineItem{
			Name:       item.Title,
			UnitAmount: item.UnitPriceCents,
			Quantity:   item.Quantity,
		}
		if item.ItemType == model.ItemTypeMembership {
			li.RecurringEvery = s.pricing.MembershipInterval
		}
		lineItems = append(lineItems, li)
	}

	orderID := url.QueryEscape(order.ID)

	return &model.CreateSessionParams{
		Mode:              order.Mode,
		Currency:          order.Currency,
		CustomerEmail:     caller.Email,
		ClientReferenceID: order.ID,
		// Stripe substitutes {CHECKOUT_SESSION_ID}; it must stay unescaped.
		SuccessURL: s.baseURL + "/checkout/success?order_id=" + orderID + "&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.baseURL + "/checkout/cancel?order_id=" + orderID,
		LineItems:  lineItems,
		Metadata: map[string]string{
			"order_id": order.ID,
			"user_id":  caller.UserID,
		},
	}
}

func (s *checkoutServiceImpl) VerifyPayment(ctx context.Context, caller *auth.Identity, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.UserID != caller.UserID {
		s.log.Warn(ctx, "security: order ownership mismatch",
			"order_id", order.ID, "user_id", caller.UserID)
		return nil, common.ErrOrderOwnership
	}

	if order.SessionID() == "" || order.SessionID() != req.SessionID {
		s.log.Warn(ctx, "security: checkout session mismatch",
			"order_id", order.ID, "user_id", caller.UserID)
		return nil, common.ErrSessionMismatch
	}

	if order.Status == model.OrderStatusPaid {
		return alreadyProcessed(order.ID), nil
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s", common.ErrPaymentNotCompleted, order.Status)
	}

	session, err := s.stripeClient.GetCheckoutSession(ctx, req.SessionID)
	if err != nil {
		s.log.Error(ctx, "get checkout session failed", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("%w: could not fetch checkout session", common.ErrProvider)
	}

	if err := s.checkSession(ctx, order, session, s.cipher.HashEmail(caller.Email)); err != nil {
		return nil, err
	}

	granted, changed, err := s.fulfill(ctx, order, session)
	if err != nil {
		return nil, err
	}
	if !changed {
		return alreadyProcessed(order.ID), nil
	}

	return &dto.VerifyPaymentResponse{
		Status:  string(model.OrderStatusPaid),
		OrderID: order.ID,
		Granted: granted,
	}, nil
}

func alreadyProcessed(orderID string) *dto.VerifyPaymentResponse {
	return &dto.VerifyPaymentResponse{
		Status:           string(model.OrderStatusPaid),
		OrderID:          orderID,
		AlreadyProcessed: true,
	}
}

func (s *checkoutServiceImpl) ReconcileOrders(ctx context.Context, caller *auth.Identity) (*dto.ReconcileResponse, error) {
	orders, err := s.orderRepo.ListByUserAndStatus(ctx, caller.UserID, model.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	resp := &dto.ReconcileResponse{}
	for _, order := range orders {
		if order.SessionID() == "" {
			continue
		}
		resp.Checked++

		outcome, err := s.reconcileOrder(ctx, order)
		if err != nil {
			s.log.Warn(ctx, "reconcile order failed", "order_id", order.ID, "user_id", caller.UserID, "error", err)
			resp.Failed++
			continue
		}

		switch outcome {
		case outcomeFulfilled:
			resp.Fulfilled++
		case outcomeExpired:
			resp.Expired++
		default:
			resp.StillPending++
		}
	}

	repaired, failed, err := s.repairSubscriber(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	resp.Repaired += repaired
	resp.Failed += failed

	s.log.Info(ctx, "orders reconciled", "user_id", caller.UserID,
		"checked", resp.Checked, "fulfilled", resp.Fulfilled, "expired", resp.Expired,
		"repaired", resp.Repaired, "failed", resp.Failed)

	return resp, nil
}

func (s *checkoutServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.stripeClient.ParseWebhookEvent(payload, signature)
	if err != nil {
		s.log.Warn(ctx, "rejected webhook", "error", err)
		return fmt.Errorf("%w: invalid webhook", common.ErrValidation)
	}

	processed, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event: %w", err)
	}
	if processed {
		return nil
	}

	log := s.log.With("event_id", event.ID, "event_type", event.Type)

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if err := s.handleSessionPaid(ctx, log, event.Session); err != nil {
			return err
		}
	case "checkout.session.expired":
		if err := s.handleSessionExpired(ctx, event.Session); err != nil {
			return err
		}
	case "customer.subscription.deleted":
		n, err := s.subscriberRepo.CancelBySubscriptionID(ctx, event.SubscriptionID)
		if err != nil {
			return fmt.Errorf("cancel subscriber: %w", err)
		}
		log.Info(ctx, "membership canceled", "subscription_id", event.SubscriptionID, "rows", n)
	default:
		log.Debug(ctx, "ignored webhook event")
	}

	return s.webhookEventRepo.MarkProcessed(ctx, event.ID, event.Type)
}

func (s *checkoutServiceImpl) handleSessionPaid(ctx context.Context, log logging.Logger, session *model.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: webhook has no checkout session", common.ErrValidation)
	}

	order, err := s.orderRepo.FindBySessionID(ctx, session.ID)
	if errors.Is(err, common.ErrNotFound) {
		log.Warn(ctx, "webhook for unknown checkout session", "session_id", session.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get order by session: %w", err)
	}
	if order.Status != model.OrderStatusPending {
		return nil
	}

	outcome, err := s.reconcileOrder(ctx, order)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrSessionMismatch),
		errors.Is(err, common.ErrCustomerMismatch),
		errors.Is(err, common.ErrPaymentNotCompleted):
		log.Warn(ctx, "webhook order not fulfilled", "order_id", order.ID, "error", err)
		return nil
	default:
		// unprocessed events are redelivered by the provider
		return fmt.Errorf("reconcile order %s: %w", order.ID, err)
	}

	log.Info(ctx, "webhook reconciled order", "order_id", order.ID, "outcome", string(outcome))
	return nil
}

func (s *checkoutServiceImpl) handleSessionExpired(ctx context.Context, session *model.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return nil
	}

	order, err := s.orderRepo.FindBySessionID(ctx, session.ID)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get order by session: %w", err)
	}

	return s.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusExpired)
}
