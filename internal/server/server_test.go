package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-storefront/internal/activity"
	"prompt-storefront/internal/auth"
	"prompt-storefront/internal/config"
	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
	"prompt-storefront/internal/service"
	"prompt-storefront/internal/testutil"
)

type stubStripe struct {
	mu       sync.Mutex
	sessions map[string]*model.CheckoutSession
}

func (s *stubStripe) CreateCheckoutSession(_ context.Context, p *model.CreateSessionParams) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := int64(0)
	for _, li := range p.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	id := fmt.Sprintf("cs_test_%d", len(s.sessions)+1)
	s.sessions[id] = &model.CheckoutSession{
		ID: id, URL: "https://checkout.test/" + id, Status: "open", PaymentStatus: "unpaid",
		CustomerEmail: p.CustomerEmail, AmountTotal: total, Currency: p.Currency, Metadata: p.Metadata,
	}
	cp := *s.sessions[id]
	return &cp, nil
}

func (s *stubStripe) GetCheckoutSession(_ context.Context, id string) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	cp := *sess
	return &cp, nil
}

func (s *stubStripe) ParseWebhookEvent([]byte, string) (*model.ProviderEvent, error) {
	return nil, errors.New("signature mismatch")
}

func (s *stubStripe) markPaid(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id].Status = "complete"
	s.sessions[id].PaymentStatus = model.SessionPaymentStatusPaid
}

type testEnv struct {
	handler  http.Handler
	verifier *auth.Verifier
	stripe   *stubStripe
	hub      *activity.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		BaseURL:   "https://shop.test",
		Pricing:   config.Pricing{LifetimeCents: 14900, MembershipCents: 1900, MembershipInterval: "month"},
		Stripe:    config.Stripe{Currency: "usd"},
		CORS:      config.CORS{AllowOrigins: []string{"*"}},
		RateLimit: config.RateLimit{PerSecond: 100, Burst: 100, ExpiresIn: time.Minute},
	}

	db := testutil.NewDB(t)
	catalogRepo := repository.NewCatalogRepository(db)
	require.NoError(t, catalogRepo.Seed(context.Background()))

	cipher, err := cryptox.NewFieldCipher(testutil.EncryptionKey)
	require.NoError(t, err)

	env := &testEnv{
		verifier: auth.NewVerifier("jwt-secret", "", ""),
		stripe:   &stubStripe{sessions: map[string]*model.CheckoutSession{}},
		hub:      activity.NewHub(logging.Nop(), 10, cfg.CORS.AllowOrigins),
	}

	entitlementRepo := repository.NewEntitlementRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)
	userService := service.NewUserService(entitlementRepo, subscriberRepo)

	services := Services{
		Checkout: service.NewCheckoutService(db, logging.Nop(), env.stripe, cipher, env.hub,
			cfg.Pricing, cfg.Stripe.Currency, cfg.BaseURL,
			catalogRepo, repository.NewOrderRepository(db), entitlementRepo, subscriberRepo,
			repository.NewWebhookEventRepository(db)),
		Catalog:    service.NewCatalogService(cfg.BaseURL, catalogRepo, userService),
		User:       userService,
		Download:   service.NewDownloadService(logging.Nop(), nil, time.Minute, catalogRepo, userService),
		Assistant:  service.NewAssistantService(logging.Nop(), nil),
		Newsletter: service.NewNewsletterService(logging.Nop(), cipher, repository.NewNewsletterRepository(db)),
		Contact:    service.NewContactService(logging.Nop(), cipher, repository.NewContactRepository(db)),
	}

	env.handler = NewServer(cfg, logging.Nop(), env.verifier, services, env.hub).Handler()
	return env
}

func (e *testEnv) token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := e.verifier.GenerateToken(userID, email, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "user-alice", "alice@example.com")
	bob := env.token(t, "user-bob", "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/checkout/create-payment", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkout/create-payment", alice, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "items")

	rec = env.do(t, http.MethodPost, "/api/checkout/create-payment", alice, map[string]interface{}{
		"items": []map[string]interface{}{{"type": "prompt", "id": "bug-hunter", "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[dto.CreatePaymentResponse](t, rec)
	assert.NotEmpty(t, created.OrderID)

	verify := map[string]string{"order_id": created.OrderID, "session_id": created.SessionID}

	rec = env.do(t, http.MethodPost, "/api/checkout/verify-payment", alice, verify)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	env.stripe.markPaid(created.SessionID)

	rec = env.do(t, http.MethodPost, "/api/checkout/verify-payment", bob, verify)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkout/verify-payment", alice,
		map[string]string{"order_id": created.OrderID, "session_id": "cs_forged"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkout/verify-payment", alice, verify)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[dto.VerifyPaymentResponse](t, rec)
	assert.Equal(t, "paid", paid.Status)
	require.Len(t, paid.Granted, 1)

	rec = env.do(t, http.MethodPost, "/api/checkout/verify-payment", alice, verify)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.VerifyPaymentResponse](t, rec).AlreadyProcessed)

	rec = env.do(t, http.MethodGet, "/api/prompts/bug-hunter", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prompt := decode[dto.PromptResponse](t, rec)
	assert.False(t, prompt.Locked)
	assert.NotEmpty(t, prompt.Body)

	rec = env.do(t, http.MethodGet, "/api/prompts/bug-hunter", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.PromptResponse](t, rec).Locked)

	rec = env.do(t, http.MethodGet, "/api/me/entitlements", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"bug-hunter"}, decode[dto.EntitlementsResponse](t, rec).PromptIDs)

	rec = env.do(t, http.MethodPost, "/api/checkout/reconcile-orders", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ReconcileResponse{}, decode[dto.ReconcileResponse](t, rec))

	rec = env.do(t, http.MethodGet, "/api/activity/recent", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[map[string][]activity.Event](t, rec)["events"]
	require.Len(t, events, 1)
	assert.Equal(t, "Bug hunter", events[0].Title)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/stripe/webhook", "", map[string]string{"id": "evt_1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.CategoryResponse](t, rec), 3)

	rec = env.do(t, http.MethodGet, "/api/prompts?category=coding&limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.PromptListResponse](t, rec)
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Items, 1)

	rec = env.do(t, http.MethodGet, "/api/prompts?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/prompts/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.PackResponse](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/packs/dev-pack", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/prompts/bug-hunter/qr?size=200", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	rec = env.do(t, http.MethodGet, "/api/prompts/bug-hunter/qr?size=5", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadAndAssistantRoutes(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "user-alice", "alice@example.com")

	rec := env.do(t, http.MethodGet, "/api/packs/dev-pack/download", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/packs/dev-pack/download", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/prompts/enhance", alice, map[string]string{"prompt": "write a poem"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/prompts/enhance", alice, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketingRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/newsletter/subscribe", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/newsletter/subscribe", "", map[string]string{"email": "reader@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[dto.NewsletterResponse](t, rec).AlreadySubscribed)

	rec = env.do(t, http.MethodPost, "/api/newsletter/subscribe", "", map[string]string{"email": "READER@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.NewsletterResponse](t, rec).AlreadySubscribed)

	rec = env.do(t, http.MethodPost, "/api/contact", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "message": "Hello there",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
