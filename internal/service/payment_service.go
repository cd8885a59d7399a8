package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/payment"
	"github.com/splitledger/splitledger/internal/storage"
)

// PaymentService is the reconciler between the external payment
// provider and the local ledger. Three entry points can learn an
// intent's fate (direct confirm, webhook succeeded, webhook failed) in
// any order and any number of times; the store's compare-and-swap
// settlement guarantees the balance moves exactly once regardless.
type PaymentService struct {
	store    storage.Store
	provider payment.Provider
}

// NewPaymentService creates a PaymentService backed by the given store
// and provider client.
func NewPaymentService(store storage.Store, provider payment.Provider) *PaymentService {
	return &PaymentService{store: store, provider: provider}
}

// CreateIntent registers a collection request with the provider and
// records it locally as pending. If the provider returns an intent id
// we have already recorded, the stored intent is returned unchanged.
// On provider failure nothing is written, so the call can be retried.
func (s *PaymentService) CreateIntent(ctx context.Context, userID int64, amount money.Cents, currency string) (*models.PaymentIntent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !money.ValidCurrency(currency) {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	currency = strings.ToUpper(currency)

	providerID, err := s.provider.CreateIntent(ctx, amount, currency)
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("provider_error").Inc()
		slog.Error("CreateIntent: provider call failed", "user_id", userID, "error", err)
		return nil, err
	}

	intent := &models.PaymentIntent{
		ProviderID:         providerID,
		UserID:             userID,
		Amount:             amount,
		Currency:           currency,
		Status:             models.IntentPending,
		PaymentMethodTypes: "card",
	}

	created, existing, err := s.store.CreatePaymentIntent(ctx, intent)
	if err != nil {
		return nil, err
	}
	if !created {
		metrics.PaymentIntentsTotal.WithLabelValues("reused").Inc()
		slog.Info("CreateIntent: intent already recorded", "provider_id", providerID)
		return existing, nil
	}

	metrics.PaymentIntentsTotal.WithLabelValues("created").Inc()
	slog.Info("Payment intent created",
		"provider_id", providerID,
		"user_id", userID,
		"amount", money.Format(amount, currency),
	)
	return intent, nil
}

// CreateIntentsForExpense opens one collection intent per split of the
// expense, skipping the payer's own share. Intents that fail at the
// provider are reported but do not block the rest; the caller can
// retry the missing ones.
func (s *PaymentService) CreateIntentsForExpense(ctx context.Context, expense *models.Expense) ([]*models.PaymentIntent, error) {
	intents := make([]*models.PaymentIntent, 0, len(expense.Splits))
	var firstErr error
	for _, split := range expense.Splits {
		if split.UserID == expense.PaidBy {
			continue
		}
		intent, err := s.CreateIntent(ctx, split.UserID, split.Amount, expense.Currency)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		intents = append(intents, intent)
	}
	return intents, firstErr
}

// Confirm resolves an intent's status. If the intent is already
// terminal the stored record is returned without touching the
// provider; otherwise the provider is asked, and a terminal answer is
// settled through the store. Non-terminal provider statuses leave the
// intent pending.
func (s *PaymentService) Confirm(ctx context.Context, providerID string) (*models.PaymentIntent, error) {
	intent, err := s.store.GetPaymentIntent(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if intent.Terminal() {
		return intent, nil
	}

	status, err := s.provider.RetrieveIntent(ctx, providerID)
	if err != nil {
		slog.Error("Confirm: provider lookup failed", "provider_id", providerID, "error", err)
		return nil, err
	}

	switch {
	case status == payment.ProviderSucceeded:
		return s.settle(ctx, providerID, models.IntentSucceeded)
	case payment.IsTerminalFailure(status):
		return s.settle(ctx, providerID, models.IntentFailed)
	default:
		slog.Info("Confirm: intent still in flight", "provider_id", providerID, "provider_status", status)
		return intent, nil
	}
}

// HandleWebhook applies a provider notification. Events for unknown
// intents and event types we do not track are acknowledged without
// effect; rejecting them would only make the provider redeliver.
func (s *PaymentService) HandleWebhook(ctx context.Context, event *payment.WebhookEvent) error {
	metrics.WebhookEventsTotal.WithLabelValues(event.Type).Inc()

	var status string
	switch event.Type {
	case payment.EventIntentSucceeded:
		status = models.IntentSucceeded
	case payment.EventIntentFailed:
		status = models.IntentFailed
	default:
		slog.Info("Webhook: ignoring event type", "type", event.Type, "intent_id", event.IntentID)
		return nil
	}

	_, err := s.settle(ctx, event.IntentID, status)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Warn("Webhook: event for unknown intent", "type", event.Type, "intent_id", event.IntentID)
		return nil
	}
	return err
}

// settle drives the pending->terminal transition. The store's
// conditional update makes replays no-ops; only the first caller to
// move an intent to succeeded sees applied=true, and only that path
// credits the balance.
func (s *PaymentService) settle(ctx context.Context, providerID, status string) (*models.PaymentIntent, error) {
	applied, intent, err := s.store.SettlePaymentIntent(ctx, providerID, status)
	if err != nil {
		return nil, err
	}
	if !applied {
		metrics.SettlementsTotal.WithLabelValues("replayed").Inc()
		slog.Info("Settlement replay ignored",
			"provider_id", providerID,
			"requested_status", status,
			"stored_status", intent.Status,
		)
		return intent, nil
	}

	metrics.SettlementsTotal.WithLabelValues(status).Inc()
	if status == models.IntentSucceeded {
		metrics.BalanceAppliedCentsTotal.Add(float64(intent.Amount))
	}
	slog.Info("Payment intent settled",
		"provider_id", providerID,
		"user_id", intent.UserID,
		"status", status,
		"amount", money.Format(intent.Amount, intent.Currency),
	)
	return intent, nil
}

// Balance returns the user's running total of settled obligations,
// zero if nothing has settled yet.
func (s *PaymentService) Balance(ctx context.Context, userID int64) (*models.Balance, error) {
	return s.store.GetBalance(ctx, userID)
}

// History lists the user's payment intents, newest first.
func (s *PaymentService) History(ctx context.Context, userID int64) ([]*models.PaymentIntent, error) {
	return s.store.ListPaymentIntentsByUser(ctx, userID)
}
