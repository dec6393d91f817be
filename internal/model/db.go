package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string `gorm:"primaryKey;size:64;not null"` // slug
	Name        string `gorm:"size:128;not null"`
	Description string
	SortOrder   int
}

type Prompt struct {
	ID         string          `gorm:"primaryKey;size:64;not null"` // slug
	Title      string          `gorm:"size:255;not null"`
	Summary    string          `gorm:"size:512"`
	Body       string          `gorm:"type:text;not null"`
	CategoryID string          `gorm:"size:64;index"`
	Tags       []string        `gorm:"serializer:json"`
	IsFree     bool            `gorm:"not null;default:false"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Pack struct {
	ID          string          `gorm:"primaryKey;size:64;not null"` // slug
	Title       string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	AssetKey    string          `gorm:"size:512"` // object storage key of the bundle
	Prompts     []Prompt        `gorm:"many2many:pack_prompts;"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PromptAccess struct {
	UserID    string `gorm:"primaryKey;size:64"`
	PromptID  string `gorm:"primaryKey;size:64;index"`
	OrderID   string `gorm:"size:36;index"`
	GrantedAt time.Time
}

type PackAccess struct {
	UserID    string `gorm:"primaryKey;size:64"`
	PackID    string `gorm:"primaryKey;size:64;index"`
	OrderID   string `gorm:"size:36;index"`
	GrantedAt time.Time
}

type SubscriberTier string

const (
	TierFree       SubscriberTier = "free"
	TierMembership SubscriberTier = "membership"
	TierLifetime   SubscriberTier = "lifetime"
)

type SubscriberStatus string

const (
	SubscriberActive   SubscriberStatus = "active"
	SubscriberCanceled SubscriberStatus = "canceled"
	SubscriberInactive SubscriberStatus = "inactive"
)

// Subscriber holds the paid tier of a user. Email and Stripe customer id are
// stored encrypted; EmailHash is the lookup key.
type Subscriber struct {
	ID                      uint             `gorm:"primaryKey"`
	UserID                  string           `gorm:"size:64;uniqueIndex;not null"`
	EmailEncrypted          string           `gorm:"type:text"`
	EmailHash               string           `gorm:"size:64;index"`
	Tier                    SubscriberTier   `gorm:"size:16;not null"`
	Status                  SubscriberStatus `gorm:"size:16;index;not null"`
	StripeCustomerEncrypted string           `gorm:"type:text"`
	StripeSubscriptionID    string           `gorm:"size:255;index"`
	SourceOrderID           string           `gorm:"size:36"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (s *Subscriber) IsActive() bool {
	return s != nil && s.Status == SubscriberActive && s.Tier != TierFree
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

type NewsletterSignup struct {
	ID             uint   `gorm:"primaryKey"`
	EmailHash      string `gorm:"size:64;uniqueIndex;not null"`
	EmailEncrypted string `gorm:"type:text;not null"`
	Source         string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ContactMessage struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:128;not null"`
	EmailEncrypted string `gorm:"type:text;not null"`
	EmailHash      string `gorm:"size:64;index"`
	Subject        string `gorm:"size:255"`
	Message        string `gorm:"type:text;not null"`
	UserID         string `gorm:"size:64"`
	CreatedAt      time.Time
}
