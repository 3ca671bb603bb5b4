package model

import "time"

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusApproved   = "approved"
	PaymentStatusRejected   = "rejected"
)

// Registration is one applicant's enrollment-and-payment attempt.
// Email and IdempotencyKey carry the unique constraints that make the
// find-or-create step in the registration service race-safe.
type Registration struct {
	ID             string `gorm:"primaryKey;size:36;not null"`
	Name           string `gorm:"size:128;not null"`
	Age            int    `gorm:"not null"`
	Email          string `gorm:"size:255;uniqueIndex;not null"` // lower-cased at intake
	Phone          string `gorm:"size:32;not null"`
	TaxID          string `gorm:"size:32"`
	IdempotencyKey string `gorm:"size:128;uniqueIndex;not null"`

	ExternalCustomerID string `gorm:"size:64"` // set once, never cleared
	ExternalChargeID   string `gorm:"size:64;index"`
	CheckoutURL        string `gorm:"size:512"`

	PaymentStatus      string `gorm:"size:16;index;not null"` // pending, processing, approved, rejected
	PaymentConfirmedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WebhookEvent is the idempotency ledger for inbound gateway notifications.
// The unique EventID turns at-least-once delivery into exactly-once handling.
type WebhookEvent struct {
	EventID    string `gorm:"primaryKey;size:128;not null"`
	ChargeID   string `gorm:"size:64;index"`
	EventType  string `gorm:"size:64;index"`
	Payload    string `gorm:"type:text"` // raw body, kept for audit/replay diagnosis
	ReceivedAt time.Time
	CreatedAt  time.Time
}
