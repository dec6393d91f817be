package model

import "time"

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
	OrderStatusExpired OrderStatus = "expired"
)

type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

type ItemType string

const (
	ItemTypePrompt     ItemType = "prompt"
	ItemTypePack       ItemType = "pack"
	ItemTypeLifetime   ItemType = "lifetime"
	ItemTypeMembership ItemType = "membership"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypePrompt, ItemTypePack, ItemTypeLifetime, ItemTypeMembership:
		return true
	}
	return false
}

// GrantsSubscriber reports whether the item is fulfilled through the subscriber table.
func (t ItemType) GrantsSubscriber() bool {
	return t == ItemTypeLifetime || t == ItemTypeMembership
}

type Order struct {
	ID              string       `gorm:"primaryKey;size:36;not null"`
	UserID          string       `gorm:"size:64;index;not null"`
	EmailHash       string       `gorm:"size:64"` // blind index of the buyer email
	Status          OrderStatus  `gorm:"size:16;index;not null"`
	Mode            CheckoutMode `gorm:"size:16;not null"`
	AmountCents     int64        `gorm:"not null"`
	Currency        string       `gorm:"size:8;not null"`
	StripeSessionID *string      `gorm:"size:255;uniqueIndex"`
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (o *Order) SessionID() string {
	if o.StripeSessionID == nil {
		return ""
	}
	return *o.StripeSessionID
}

type OrderItem struct {
	ID uint `gorm:"primaryKey"`
	// FK → orders.id
	OrderID        string   `gorm:"size:36;index;not null"`
	ItemType       ItemType `gorm:"size:16;not null"`
	ItemID         string   `gorm:"size:64"`
	Title          string   `gorm:"size:255;not null"` // snapshot at purchase time
	UnitPriceCents int64    `gorm:"not null"`
	Quantity       int64    `gorm:"not null"`
	CreatedAt      time.Time
}
