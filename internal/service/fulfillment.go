package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"prompt-storefront/internal/activity"
	"prompt-storefront/internal/common"
	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/model"
)

type reconcileOutcome string

const (
	outcomeFulfilled reconcileOutcome = "fulfilled"
	outcomeExpired   reconcileOutcome = "expired"
	outcomePending   reconcileOutcome = "pending"
)

// checkSession cross-checks a paid provider session against the stored order.
// emailHash is the blind index the session's customer email must match.
func (s *checkoutServiceImpl) checkSession(ctx context.Context, order *model.Order, session *model.CheckoutSession, emailHash string) error {
	if !session.IsPaid() {
		return fmt.Errorf("%w: payment status is %q", common.ErrPaymentNotCompleted, session.PaymentStatus)
	}

	var mismatch error
	switch {
	case session.ID != order.SessionID():
		mismatch = fmt.Errorf("%w: session id", common.ErrSessionMismatch)
	case session.Metadata["order_id"] != "" && session.Metadata["order_id"] != order.ID:
		mismatch = fmt.Errorf("%w: metadata order id", common.ErrSessionMismatch)
	case session.CustomerEmail == "" ||
		subtle.ConstantTimeCompare([]byte(s.cipher.HashEmail(session.CustomerEmail)), []byte(emailHash)) != 1:
		mismatch = common.ErrCustomerMismatch
	case session.AmountTotal != order.AmountCents || !strings.EqualFold(session.Currency, order.Currency):
		mismatch = fmt.Errorf("%w: amount", common.ErrSessionMismatch)
	}

	if mismatch != nil {
		s.log.Warn(ctx, "security: checkout session failed verification",
			"order_id", order.ID, "user_id", order.UserID, "session_id", session.ID, "error", mismatch)
	}
	return mismatch
}

// reconcileOrder re-reads the order's session from the provider and fulfils,
// expires or leaves the order pending accordingly.
func (s *checkoutServiceImpl) reconcileOrder(ctx context.Context, order *model.Order) (reconcileOutcome, error) {
	session, err := s.stripeClient.GetCheckoutSession(ctx, order.SessionID())
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrProvider, err)
	}

	if !session.IsPaid() {
		if session.Status == model.SessionStatusExpired {
			if err := s.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusExpired); err != nil {
				return "", fmt.Errorf("mark order expired: %w", err)
			}
			return outcomeExpired, nil
		}
		return outcomePending, nil
	}

	if err := s.checkSession(ctx, order, session, order.EmailHash); err != nil {
		return "", err
	}

	if _, _, err := s.fulfill(ctx, order, session); err != nil {
		return "", err
	}

	return outcomeFulfilled, nil
}

// fulfill marks the order paid and grants every item in one transaction. It
// reports changed=false when the order had already left the pending state.
func (s *checkoutServiceImpl) fulfill(ctx context.Context, order *model.Order, session *model.CheckoutSession) ([]*dto.GrantedItem, bool, error) {
	var (
		granted []*dto.GrantedItem
		changed bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = s.orderRepo.MarkPaid(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if !changed {
			return nil
		}

		items, err := s.orderRepo.GetOrderItems(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("get order items: %w", err)
		}

		for _, item := range items {
			if err := s.grantItem(ctx, tx, order, item, session); err != nil {
				return err
			}
			granted = append(granted, &dto.GrantedItem{
				Type:  string(item.ItemType),
				ID:    item.ItemID,
				Title: item.Title,
			})
		}

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.log.Info(ctx, "order fulfilled", "order_id", order.ID, "user_id", order.UserID, "items", len(granted))
		for _, g := range granted {
			s.publisher.Publish(activity.Event{
				Type:       "purchase",
				ItemType:   g.Type,
				Title:      g.Title,
				OccurredAt: time.Now().UTC(),
			})
		}
	}

	return granted, changed, nil
}

func (s *checkoutServiceImpl) grantItem(ctx context.Context, tx *gorm.DB, order *model.Order, item *model.OrderItem, session *model.CheckoutSession) error {
	switch item.ItemType {
	case model.ItemTypePrompt:
		if err := s.entitlementRepo.GrantPrompt(ctx, tx, order.UserID, item.ItemID, order.ID); err != nil {
			return fmt.Errorf("grant prompt %s: %w", item.ItemID, err)
		}
	case model.ItemTypePack:
		if err := s.entitlementRepo.GrantPack(ctx, tx, order.UserID, item.ItemID, order.ID); err != nil {
			return fmt.Errorf("grant pack %s: %w", item.ItemID, err)
		}
	case model.ItemTypeLifetime, model.ItemTypeMembership:
		sub, err := s.subscriberFor(order, item.ItemType, session)
		if err != nil {
			return err
		}
		if _, err := s.subscriberRepo.Grant(ctx, tx, sub); err != nil {
			return fmt.Errorf("grant %s: %w", item.ItemType, err)
		}
	default:
		return fmt.Errorf("unknown item type %q", item.ItemType)
	}

	return nil
}

func (s *checkoutServiceImpl) subscriberFor(order *model.Order, itemType model.ItemType, session *model.CheckoutSession) (*model.Subscriber, error) {
	sub := &model.Subscriber{
		UserID:        order.UserID,
		Tier:          model.TierLifetime,
		Status:        model.SubscriberActive,
		SourceOrderID: order.ID,
	}
	if itemType == model.ItemTypeMembership {
		sub.Tier = model.TierMembership
		sub.StripeSubscriptionID = session.SubscriptionID
	}

	if session.CustomerEmail != "" {
		enc, err := s.cipher.Encrypt(cryptox.NormalizeEmail(session.CustomerEmail))
		if err != nil {
			return nil, fmt.Errorf("encrypt subscriber email: %w", err)
		}
		sub.EmailEncrypted = enc
		sub.EmailHash = s.cipher.HashEmail(session.CustomerEmail)
	}

	if session.CustomerID != "" {
		enc, err := s.cipher.Encrypt(session.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("encrypt customer id: %w", err)
		}
		sub.StripeCustomerEncrypted = enc
	}

	return sub, nil
}

// repairSubscriber re-grants lifetime or membership access for paid orders
// whose subscriber row is missing or was left inactive. A canceled membership
// is a deliberate state and is not repaired.
func (s *checkoutServiceImpl) repairSubscriber(ctx context.Context, userID string) (repaired, failed int, err error) {
	orders, err := s.orderRepo.ListPaidSubscriberOrders(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("list paid subscriber orders: %w", err)
	}
	if len(orders) == 0 {
		return 0, 0, nil
	}

	current, err := s.subscriberRepo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return 0, 0, fmt.Errorf("get subscriber: %w", err)
	}

	order, itemType := pickRepairOrder(orders, current)
	if order == nil {
		return 0, 0, nil
	}

	session := &model.CheckoutSession{}
	if order.SessionID() != "" {
		fetched, err := s.stripeClient.GetCheckoutSession(ctx, order.SessionID())
		if err != nil {
			s.log.Warn(ctx, "repair subscriber: get checkout session", "order_id", order.ID, "error", err)
			return 0, 1, nil
		}
		session = fetched
	}

	sub, err := s.subscriberFor(order, itemType, session)
	if err != nil {
		return 0, 1, nil
	}
	if _, err := s.subscriberRepo.Grant(ctx, s.db, sub); err != nil {
		s.log.Error(ctx, "repair subscriber failed", "order_id", order.ID, "error", err)
		return 0, 1, nil
	}

	s.log.Info(ctx, "orphaned subscription repaired", "order_id", order.ID, "user_id", userID, "tier", string(sub.Tier))
	return 1, 0, nil
}

// pickRepairOrder chooses the order to re-grant from, newest first, lifetime
// before membership. It returns nil when the current row is already correct.
func pickRepairOrder(orders []*model.Order, current *model.Subscriber) (*model.Order, model.ItemType) {
	if current != nil && current.Tier == model.TierLifetime && current.Status == model.SubscriberActive {
		return nil, ""
	}

	for _, o := range orders {
		if orderHas(o, model.ItemTypeLifetime) {
			return o, model.ItemTypeLifetime
		}
	}

	if current != nil && (current.IsActive() || current.Status == model.SubscriberCanceled) {
		return nil, ""
	}

	for _, o := range orders {
		if orderHas(o, model.ItemTypeMembership) {
			return o, model.ItemTypeMembership
		}
	}

	return nil, ""
}

func orderHas(order *model.Order, itemType model.ItemType) bool {
	for _, item := range order.Items {
		if item.ItemType == itemType {
			return true
		}
	}
	return false
}
