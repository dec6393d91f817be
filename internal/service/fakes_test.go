package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"prompt-storefront/internal/activity"
	"prompt-storefront/internal/auth"
	"prompt-storefront/internal/client"
	"prompt-storefront/internal/config"
	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
	"prompt-storefront/internal/testutil"
)

type fakeStripe struct {
	mu        sync.Mutex
	seq       int
	sessions  map[string]*model.CheckoutSession
	created   []*model.CreateSessionParams
	events    map[string]*model.ProviderEvent
	createErr error
	getErr    error
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{
		sessions: make(map[string]*model.CheckoutSession),
		events:   make(map[string]*model.ProviderEvent),
	}
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, p *model.CreateSessionParams) (*model.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}

	f.seq++
	total := int64(0)
	for _, li := range p.LineItems {
		total += li.UnitAmount * li.Quantity
	}

	s := &model.CheckoutSession{
		ID:                fmt.Sprintf("cs_test_%d", f.seq),
		URL:               fmt.Sprintf("https://checkout.stripe.test/pay/cs_test_%d", f.seq),
		Status:            "open",
		PaymentStatus:     "unpaid",
		CustomerEmail:     p.CustomerEmail,
		ClientReferenceID: p.ClientReferenceID,
		AmountTotal:       total,
		Currency:          p.Currency,
		Metadata:          p.Metadata,
	}
	f.sessions[s.ID] = s
	f.created = append(f.created, p)

	cp := *s
	return &cp, nil
}

func (f *fakeStripe) GetCheckoutSession(_ context.Context, id string) (*model.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStripe) ParseWebhookEvent(payload []byte, signature string) (*model.ProviderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if signature != "valid" {
		return nil, errors.New("signature mismatch")
	}
	e, ok := f.events[string(payload)]
	if !ok {
		return nil, errors.New("unknown payload")
	}
	return e, nil
}

// update mutates a stored session, e.g. to mark it paid.
func (f *fakeStripe) update(id string, fn func(s *model.CheckoutSession)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.sessions[id])
}

func (f *fakeStripe) pay(id string) {
	f.update(id, func(s *model.CheckoutSession) {
		s.Status = "complete"
		s.PaymentStatus = model.SessionPaymentStatusPaid
		s.CustomerID = "cus_123"
	})
}

func (f *fakeStripe) lastCreated() *model.CreateSessionParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []activity.Event
}

func (p *fakePublisher) Publish(e activity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *fakePublisher) published() []activity.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]activity.Event(nil), p.events...)
}

type fakeStorage struct {
	keys []string
	err  error
}

func (s *fakeStorage) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return fmt.Sprintf("https://bucket.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

type fakeAssistant struct {
	reply    string
	err      error
	messages []client.ChatMessage
}

func (a *fakeAssistant) Complete(_ context.Context, messages []client.ChatMessage) (string, error) {
	a.messages = messages
	return a.reply, a.err
}

type checkoutFixture struct {
	svc         CheckoutService
	db          *gorm.DB
	stripe      *fakeStripe
	publisher   *fakePublisher
	cipher      *cryptox.FieldCipher
	orders      repository.OrderRepository
	entitlement repository.EntitlementRepository
	subscribers repository.SubscriberRepository
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := testutil.NewDB(t)
	catalogRepo := repository.NewCatalogRepository(db)
	require.NoError(t, catalogRepo.Seed(context.Background()))

	cipher, err := cryptox.NewFieldCipher(testutil.EncryptionKey)
	require.NoError(t, err)

	f := &checkoutFixture{
		db:          db,
		stripe:      newFakeStripe(),
		publisher:   &fakePublisher{},
		cipher:      cipher,
		orders:      repository.NewOrderRepository(db),
		entitlement: repository.NewEntitlementRepository(db),
		subscribers: repository.NewSubscriberRepository(db),
	}

	f.svc = NewCheckoutService(
		db,
		logging.Nop(),
		f.stripe,
		cipher,
		f.publisher,
		config.Pricing{LifetimeCents: 14900, MembershipCents: 1900, MembershipInterval: "month"},
		"USD",
		"https://shop.test/",
		catalogRepo,
		f.orders,
		f.entitlement,
		f.subscribers,
		repository.NewWebhookEventRepository(db),
	)

	return f
}

var (
	alice = &auth.Identity{UserID: "user-alice", Email: "Alice@Example.com"}
	bob   = &auth.Identity{UserID: "user-bob", Email: "bob@example.com"}
)
