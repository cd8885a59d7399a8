package models

import "github.com/splitledger/splitledger/internal/money"

// Intent status values. An intent is created pending and moves to
// exactly one terminal state; terminal states never transition again.
const (
	IntentPending   = "pending"
	IntentSucceeded = "succeeded"
	IntentFailed    = "failed"
)

// PaymentIntent is the local record of a provider-tracked collection
// request. ProviderID is the provider's intent id and is unique: it is
// the idempotency key for both creation and confirmation, across
// retries and process restarts.
type PaymentIntent struct {
	// ID is the local identifier (UUID format).
	ID string

	// ProviderID is the external payment_intent_id assigned by the
	// provider. Unique.
	ProviderID string

	// UserID is the participant this intent collects from.
	UserID int64

	// Amount is the amount to collect, in minor units.
	Amount money.Cents

	// Currency is the 3-letter ISO 4217 code.
	Currency string

	// Status is one of IntentPending, IntentSucceeded, IntentFailed.
	Status string

	// PaymentMethodTypes is the comma-joined method list sent to the
	// provider (currently always "card").
	PaymentMethodTypes string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Terminal reports whether the intent has reached a final status.
func (p *PaymentIntent) Terminal() bool {
	return p.Status == IntentSucceeded || p.Status == IntentFailed
}

// Balance is a user's running total of settled obligations. At most one
// row exists per user, and it is mutated only when a payment intent
// first transitions from pending to succeeded.
type Balance struct {
	ID        int64
	UserID    int64
	Balance   money.Cents
	UpdatedAt int64
}
