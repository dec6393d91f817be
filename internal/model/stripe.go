package model

// CheckoutSession is the subset of a provider checkout session the checkout
// flow relies on.
type CheckoutSession struct {
	ID                string
	URL               string
	Status            string // open, complete, expired
	PaymentStatus     string // paid, unpaid, no_payment_required
	CustomerEmail     string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	AmountTotal       int64
	Currency          string
	Metadata          map[string]string
}

const (
	SessionStatusExpired     = "expired"
	SessionPaymentStatusPaid = "paid"
)

func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == SessionPaymentStatusPaid
}

type CheckoutLineItem struct {
	Name           string
	UnitAmount     int64
	Quantity       int64
	RecurringEvery string // empty for one-time prices
}

type CreateSessionParams struct {
	Mode              CheckoutMode
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	LineItems         []CheckoutLineItem
	Metadata          map[string]string
}

// ProviderEvent is a verified webhook event.
type ProviderEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // checkout.session.* events
	// SubscriptionID is set for customer.subscription.* events.
	SubscriptionID string
}
