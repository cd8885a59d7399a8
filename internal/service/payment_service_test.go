package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/payment"
	"github.com/splitledger/splitledger/internal/storage"
)

// fakeProvider is an in-memory payment provider. Statuses are set by
// the test to simulate the provider resolving intents out of band.
type fakeProvider struct {
	nextID   int
	statuses map[string]string
	fail     bool
	calls    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{statuses: make(map[string]string)}
}

func (f *fakeProvider) CreateIntent(ctx context.Context, amount money.Cents, currency string) (string, error) {
	f.calls++
	if f.fail {
		return "", fmt.Errorf("%w: connection refused", payment.ErrExternalService)
	}
	f.nextID++
	id := fmt.Sprintf("pi_test_%d", f.nextID)
	f.statuses[id] = payment.ProviderProcessing
	return id, nil
}

func (f *fakeProvider) RetrieveIntent(ctx context.Context, intentID string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("%w: connection refused", payment.ErrExternalService)
	}
	status, ok := f.statuses[intentID]
	if !ok {
		return "", fmt.Errorf("%w: no such intent", payment.ErrExternalService)
	}
	return status, nil
}

func newPaymentFixture(t *testing.T) (storage.Store, *fakeProvider, *PaymentService, int64) {
	t.Helper()
	store := newTestStore(t)
	provider := newFakeProvider()
	svc := NewPaymentService(store, provider)
	_, userIDs := seedGroup(t, store, 2)
	return store, provider, svc, userIDs[1]
}

func TestCreateIntent(t *testing.T) {
	_, provider, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 3000, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if intent.Status != models.IntentPending {
		t.Errorf("expected pending, got %q", intent.Status)
	}
	if intent.ProviderID == "" || intent.ID == "" {
		t.Errorf("intent ids not populated: %+v", intent)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}

	if _, err := svc.CreateIntent(ctx, userID, 0, "USD"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
	if _, err := svc.CreateIntent(ctx, userID, 100, "US"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for bad currency, got %v", err)
	}
}

func TestCreateIntentProviderDown(t *testing.T) {
	store, provider, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	provider.fail = true
	if _, err := svc.CreateIntent(ctx, userID, 3000, "USD"); !errors.Is(err, payment.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}

	// Nothing was written; a retry starts clean.
	history, err := store.ListPaymentIntentsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListPaymentIntentsByUser failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no intents after provider failure, got %d", len(history))
	}

	provider.fail = false
	if _, err := svc.CreateIntent(ctx, userID, 3000, "USD"); err != nil {
		t.Errorf("retry after provider recovery failed: %v", err)
	}
}

func TestCreateIntentsForExpense(t *testing.T) {
	store := newTestStore(t)
	provider := newFakeProvider()
	svc := NewPaymentService(store, provider)
	ctx := context.Background()

	_, userIDs := seedGroup(t, store, 3)

	expense := &models.Expense{
		PaidBy:   userIDs[0],
		Currency: "USD",
		Splits: []models.ExpenseSplit{
			{UserID: userIDs[0], Amount: 3000},
			{UserID: userIDs[1], Amount: 3000},
			{UserID: userIDs[2], Amount: 3000},
		},
	}

	intents, err := svc.CreateIntentsForExpense(ctx, expense)
	if err != nil {
		t.Fatalf("CreateIntentsForExpense failed: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("expected 2 intents (payer skipped), got %d", len(intents))
	}
	for _, intent := range intents {
		if intent.UserID == expense.PaidBy {
			t.Errorf("payer should not owe their own share")
		}
		if intent.Amount != 3000 {
			t.Errorf("expected 3000 cents, got %d", intent.Amount)
		}
	}
}

func TestConfirmSettlesOnce(t *testing.T) {
	store, provider, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 3000, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	// Still processing at the provider: stays pending.
	got, err := svc.Confirm(ctx, intent.ProviderID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if got.Status != models.IntentPending {
		t.Errorf("expected pending while processing, got %q", got.Status)
	}

	provider.statuses[intent.ProviderID] = payment.ProviderSucceeded

	// Confirm repeatedly; the balance must move exactly once.
	for i := 0; i < 3; i++ {
		got, err = svc.Confirm(ctx, intent.ProviderID)
		if err != nil {
			t.Fatalf("Confirm %d failed: %v", i, err)
		}
		if got.Status != models.IntentSucceeded {
			t.Errorf("Confirm %d: expected succeeded, got %q", i, got.Status)
		}
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 3000 {
		t.Errorf("expected balance 3000 after replays, got %d", balance.Balance)
	}

	// The stored row is terminal too, not just the returned copy.
	stored, err := store.GetPaymentIntent(ctx, intent.ProviderID)
	if err != nil {
		t.Fatalf("GetPaymentIntent failed: %v", err)
	}
	if stored.Status != models.IntentSucceeded {
		t.Errorf("stored intent should be succeeded, got %q", stored.Status)
	}
}

func TestConfirmFailure(t *testing.T) {
	_, provider, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 2000, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	provider.statuses[intent.ProviderID] = payment.ProviderCanceled

	got, err := svc.Confirm(ctx, intent.ProviderID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if got.Status != models.IntentFailed {
		t.Errorf("expected failed, got %q", got.Status)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 0 {
		t.Errorf("failed intent must not move the balance, got %d", balance.Balance)
	}

	// A late success report cannot resurrect a failed intent.
	provider.statuses[intent.ProviderID] = payment.ProviderSucceeded
	got, err = svc.Confirm(ctx, intent.ProviderID)
	if err != nil {
		t.Fatalf("late Confirm failed: %v", err)
	}
	if got.Status != models.IntentFailed {
		t.Errorf("terminal status must not change, got %q", got.Status)
	}
}

func TestConfirmProviderDownLeavesPending(t *testing.T) {
	store, provider, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 2000, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	provider.fail = true
	if _, err := svc.Confirm(ctx, intent.ProviderID); !errors.Is(err, payment.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}

	stored, err := store.GetPaymentIntent(ctx, intent.ProviderID)
	if err != nil {
		t.Fatalf("GetPaymentIntent failed: %v", err)
	}
	if stored.Status != models.IntentPending {
		t.Errorf("intent must stay pending when the provider is down, got %q", stored.Status)
	}
}

func TestConfirmUnknownIntent(t *testing.T) {
	_, _, svc, _ := newPaymentFixture(t)

	if _, err := svc.Confirm(context.Background(), "pi_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHandleWebhook(t *testing.T) {
	_, _, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 4500, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	event := &payment.WebhookEvent{
		Type:     payment.EventIntentSucceeded,
		IntentID: intent.ProviderID,
		Status:   payment.ProviderSucceeded,
	}

	// At-least-once delivery: three copies, one balance mutation.
	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(ctx, event); err != nil {
			t.Fatalf("HandleWebhook %d failed: %v", i, err)
		}
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 4500 {
		t.Errorf("expected 4500 after duplicate webhooks, got %d", balance.Balance)
	}
}

func TestHandleWebhookRaceWithConfirm(t *testing.T) {
	_, provider, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 1500, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	provider.statuses[intent.ProviderID] = payment.ProviderSucceeded

	// Webhook lands first, then the client confirms.
	if err := svc.HandleWebhook(ctx, &payment.WebhookEvent{
		Type:     payment.EventIntentSucceeded,
		IntentID: intent.ProviderID,
	}); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}
	if _, err := svc.Confirm(ctx, intent.ProviderID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 1500 {
		t.Errorf("expected 1500 after webhook+confirm, got %d", balance.Balance)
	}
}

func TestHandleWebhookUnknownIntent(t *testing.T) {
	_, _, svc, _ := newPaymentFixture(t)

	err := svc.HandleWebhook(context.Background(), &payment.WebhookEvent{
		Type:     payment.EventIntentSucceeded,
		IntentID: "pi_never_seen",
	})
	if err != nil {
		t.Errorf("unknown intent must be acknowledged, got %v", err)
	}
}

func TestHandleWebhookIgnoredType(t *testing.T) {
	_, _, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userID, 1000, "USD")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	err = svc.HandleWebhook(ctx, &payment.WebhookEvent{
		Type:     "payment_intent.created",
		IntentID: intent.ProviderID,
	})
	if err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	got, err := svc.Confirm(ctx, intent.ProviderID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if got.Status != models.IntentPending {
		t.Errorf("ignored event type must not settle the intent, got %q", got.Status)
	}
}

func TestBalanceAccumulates(t *testing.T) {
	_, _, svc, userID := newPaymentFixture(t)
	ctx := context.Background()

	// Zero before anything settles.
	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 0 {
		t.Errorf("expected zero balance, got %d", balance.Balance)
	}

	for _, amount := range []money.Cents{1000, 2500} {
		intent, err := svc.CreateIntent(ctx, userID, amount, "USD")
		if err != nil {
			t.Fatalf("CreateIntent failed: %v", err)
		}
		if err := svc.HandleWebhook(ctx, &payment.WebhookEvent{
			Type:     payment.EventIntentSucceeded,
			IntentID: intent.ProviderID,
		}); err != nil {
			t.Fatalf("HandleWebhook failed: %v", err)
		}
	}

	balance, err = svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 3500 {
		t.Errorf("expected 3500, got %d", balance.Balance)
	}

	history, err := svc.History(ctx, userID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 intents in history, got %d", len(history))
	}
}
