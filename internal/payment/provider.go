// Package payment is the boundary to the external payment provider.
// The provider collects money from participants asynchronously; this
// package only creates intents, reads their status, and decodes the
// provider's webhook events. All reconciliation logic lives in the
// service layer.
package payment

import (
	"context"
	"errors"

	"github.com/splitledger/splitledger/internal/money"
)

// ErrExternalService is returned when the provider is unreachable or
// rejects a call. The caller's local state is left untouched (a pending
// intent stays pending) so the operation can be retried.
var ErrExternalService = errors.New("payment provider error")

// Provider status strings. The provider has more intermediate statuses
// than we track locally; anything in terminalFailures maps to a local
// failed intent, "succeeded" maps to succeeded, and the rest leave the
// intent pending.
const (
	ProviderSucceeded             = "succeeded"
	ProviderProcessing            = "processing"
	ProviderCanceled              = "canceled"
	ProviderRequiresPaymentMethod = "requires_payment_method"
	ProviderPaymentFailed         = "payment_failed"
)

var terminalFailures = map[string]bool{
	ProviderCanceled:              true,
	ProviderRequiresPaymentMethod: true,
	ProviderPaymentFailed:         true,
}

// IsTerminalFailure reports whether a provider status means the
// collection definitively failed.
func IsTerminalFailure(status string) bool {
	return terminalFailures[status]
}

// Provider is the external payment service. Implementations must honor
// context deadlines; the network call is the only blocking point in the
// settlement path and must never be made while holding a lock.
type Provider interface {
	// CreateIntent registers a collection request for the amount and
	// returns the provider's intent id.
	CreateIntent(ctx context.Context, amount money.Cents, currency string) (string, error)

	// RetrieveIntent returns the provider's current status for the
	// intent.
	RetrieveIntent(ctx context.Context, intentID string) (string, error)
}
