package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/testutil"
)

func TestSubscriberRepository_GrantCreatesAndUpdates(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriberRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUserID(ctx, "user-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	sub, err := repo.Grant(ctx, db, &model.Subscriber{
		UserID:               "user-1",
		EmailEncrypted:       "enc",
		EmailHash:            "hash",
		Tier:                 model.TierMembership,
		Status:               model.SubscriberActive,
		StripeSubscriptionID: "sub_1",
		SourceOrderID:        "order-1",
	})
	require.NoError(t, err)
	assert.True(t, sub.IsActive())
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)

	sub, err = repo.Grant(ctx, db, &model.Subscriber{
		UserID:        "user-1",
		Tier:          model.TierLifetime,
		Status:        model.SubscriberActive,
		SourceOrderID: "order-2",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TierLifetime, sub.Tier)
	assert.Equal(t, "order-2", sub.SourceOrderID)
	assert.Equal(t, "enc", sub.EmailEncrypted, "contact fields survive an upsert without them")
}

func TestSubscriberRepository_LifetimeIsNotDowngraded(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriberRepository(db)
	ctx := context.Background()

	_, err := repo.Grant(ctx, db, &model.Subscriber{
		UserID:        "user-1",
		Tier:          model.TierLifetime,
		Status:        model.SubscriberActive,
		SourceOrderID: "order-1",
	})
	require.NoError(t, err)

	sub, err := repo.Grant(ctx, db, &model.Subscriber{
		UserID:                  "user-1",
		EmailEncrypted:          "enc",
		EmailHash:               "hash",
		StripeCustomerEncrypted: "cus-enc",
		Tier:                    model.TierMembership,
		Status:                  model.SubscriberActive,
		StripeSubscriptionID:    "sub_1",
		SourceOrderID:           "order-2",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TierLifetime, sub.Tier)
	assert.Equal(t, "order-1", sub.SourceOrderID)
	assert.Empty(t, sub.StripeSubscriptionID)
	assert.Equal(t, "enc", sub.EmailEncrypted)
	assert.Equal(t, "cus-enc", sub.StripeCustomerEncrypted)
}

func TestSubscriberRepository_CancelMembershipOnly(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriberRepository(db)
	ctx := context.Background()

	_, err := repo.Grant(ctx, db, &model.Subscriber{
		UserID: "member", Tier: model.TierMembership, Status: model.SubscriberActive, StripeSubscriptionID: "sub_1",
	})
	require.NoError(t, err)

	n, err := repo.CancelBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sub, err := repo.FindByUserID(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriberCanceled, sub.Status)
	assert.False(t, sub.IsActive())

	n, err = repo.CancelBySubscriptionID(ctx, "sub_unknown")
	require.NoError(t, err)
	assert.Zero(t, n)
}
