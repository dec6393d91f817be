package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/model"
)

type SubscriberRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Subscriber, error)
	Grant(ctx context.Context, tx *gorm.DB, sub *model.Subscriber) (*model.Subscriber, error)
	CancelBySubscriptionID(ctx context.Context, subscriptionID string) (int64, error)
}

type subscriberRepoImpl struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepoImpl{
		db: db,
	}
}

func (r *subscriberRepoImpl) FindByUserID(ctx context.Context, userID string) (*model.Subscriber, error) {
	return findSubscriber(ctx, r.db, userID)
}

func findSubscriber(ctx context.Context, db *gorm.DB, userID string) (*model.Subscriber, error) {
	var sub model.Subscriber
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return &sub, nil
}

// Grant upserts the subscriber row of sub.UserID and returns the stored row.
// An active lifetime tier is never replaced by a membership grant; in that
// case only missing contact fields are filled in.
func (r *subscriberRepoImpl) Grant(ctx context.Context, tx *gorm.DB, sub *model.Subscriber) (*model.Subscriber, error) {
	existing, err := findSubscriber(ctx, tx, sub.UserID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.Tier == model.TierLifetime && existing.Status == model.SubscriberActive &&
		sub.Tier != model.TierLifetime {
		updates := map[string]interface{}{"updated_at": time.Now()}
		if existing.EmailEncrypted == "" && sub.EmailEncrypted != "" {
			updates["email_encrypted"] = sub.EmailEncrypted
			updates["email_hash"] = sub.EmailHash
		}
		if existing.StripeCustomerEncrypted == "" && sub.StripeCustomerEncrypted != "" {
			updates["stripe_customer_encrypted"] = sub.StripeCustomerEncrypted
		}
		if err := tx.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return findSubscriber(ctx, tx, sub.UserID)
	}

	columns := []string{"tier", "status", "stripe_subscription_id", "source_order_id", "updated_at"}
	if sub.EmailEncrypted != "" {
		columns = append(columns, "email_encrypted", "email_hash")
	}
	if sub.StripeCustomerEncrypted != "" {
		columns = append(columns, "stripe_customer_encrypted")
	}

	err = tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}

	return findSubscriber(ctx, tx, sub.UserID)
}

// CancelBySubscriptionID cancels membership rows linked to a provider
// subscription. Lifetime rows are left untouched.
func (r *subscriberRepoImpl) CancelBySubscriptionID(ctx context.Context, subscriptionID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscriber{}).
		Where("stripe_subscription_id = ? AND tier = ?", subscriptionID, model.TierMembership).
		Updates(map[string]interface{}{
			"status":     model.SubscriberCanceled,
			"updated_at": time.Now(),
		})

	return result.RowsAffected, result.Error
}
