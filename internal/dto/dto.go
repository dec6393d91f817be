package dto

import "time"

type CheckoutItem struct {
	Type string `json:"type" validate:"required,oneof=prompt pack lifetime membership"`
	ID   string `json:"id" validate:"max=64"`
	// Quantity defaults to 1 when omitted.
	Quantity int64 `json:"quantity" validate:"gte=0,lte=100"`
}

type CreatePaymentRequest struct {
	Items []*CheckoutItem `json:"items" validate:"required,min=1,max=50,dive,required"`
	Mode  string          `json:"mode" validate:"omitempty,oneof=payment subscription"`
}

type CreatePaymentResponse struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required,max=64"`
	SessionID string `json:"session_id" validate:"required,max=255"`
}

type GrantedItem struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

type VerifyPaymentResponse struct {
	Status           string         `json:"status"`
	OrderID          string         `json:"order_id"`
	AlreadyProcessed bool           `json:"already_processed,omitempty"`
	Granted          []*GrantedItem `json:"granted,omitempty"`
}

type ReconcileResponse struct {
	Checked      int `json:"checked"`
	Fulfilled    int `json:"fulfilled"`
	Expired      int `json:"expired"`
	StillPending int `json:"still_pending"`
	Repaired     int `json:"repaired"`
	Failed       int `json:"failed"`
}

type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PromptResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Body       string   `json:"body,omitempty"`
	CategoryID string   `json:"category_id"`
	Tags       []string `json:"tags"`
	IsFree     bool     `json:"is_free"`
	Price      string   `json:"price"`
	Locked     bool     `json:"locked"`
}

type PromptListRequest struct {
	Category string `query:"category" validate:"max=64"`
	Tag      string `query:"tag" validate:"max=64"`
	Query    string `query:"q" validate:"max=128"`
	Limit    int    `query:"limit" validate:"gte=0,lte=100"`
	Offset   int    `query:"offset" validate:"gte=0"`
}

type PromptListResponse struct {
	Items  []*PromptResponse `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type PackResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        string   `json:"price"`
	PromptIDs    []string `json:"prompt_ids"`
	Downloadable bool     `json:"downloadable"`
}

type EntitlementsResponse struct {
	PromptIDs []string `json:"prompt_ids"`
	PackIDs   []string `json:"pack_ids"`
	Tier      string   `json:"tier"`
	Status    string   `json:"status"`
}

type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EnhancePromptRequest struct {
	Prompt string `json:"prompt" validate:"required,max=4000"`
	Goal   string `json:"goal" validate:"max=500"`
	Tone   string `json:"tone" validate:"max=64"`
}

type EnhancePromptResponse struct {
	Prompt string `json:"prompt"`
}

type NewsletterRequest struct {
	Email  string `json:"email" validate:"required,email,max=254"`
	Source string `json:"source" validate:"max=64"`
}

type NewsletterResponse struct {
	Subscribed        bool `json:"subscribed"`
	AlreadySubscribed bool `json:"already_subscribed"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

type ContactResponse struct {
	Received bool `json:"received"`
}
