package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-storefront/internal/model"
	"prompt-storefront/internal/testutil"
)

func TestWebhookEventRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", "checkout.session.completed"))
	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", "checkout.session.completed"))

	ok, err = repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewsletterRepository_Subscribe(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewNewsletterRepository(db)
	ctx := context.Background()

	created, err := repo.Subscribe(ctx, &model.NewsletterSignup{EmailHash: "h1", EmailEncrypted: "e1", Source: "footer"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Subscribe(ctx, &model.NewsletterSignup{EmailHash: "h1", EmailEncrypted: "e2", Source: "popup"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestContactRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContactRepository(db)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &model.ContactMessage{
			Name: "Ada", EmailEncrypted: "enc", EmailHash: "h1", Message: "hello",
		}))
	}

	n, err := repo.CountSince(ctx, "h1", start)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountSince(ctx, "h2", start)
	require.NoError(t, err)
	assert.Zero(t, n)
}
