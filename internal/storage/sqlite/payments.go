package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// CreatePaymentIntent inserts the intent keyed by its provider id.
// INSERT OR IGNORE plus a reread makes the call idempotent: a retry
// carrying the same provider id finds the original row instead of
// creating a second one.
func (s *SQLiteStore) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (bool, *models.PaymentIntent, error) {
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if intent.CreatedAt == 0 {
		intent.CreatedAt = now
	}
	if intent.UpdatedAt == 0 {
		intent.UpdatedAt = now
	}
	if intent.Status == "" {
		intent.Status = models.IntentPending
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO payment_intents
		 (id, payment_intent_id, user_id, amount_cents, currency, status, payment_method_types, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.ProviderID, intent.UserID, int64(intent.Amount),
		intent.Currency, intent.Status, intent.PaymentMethodTypes, intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		return false, nil, fmt.Errorf("failed to insert payment intent: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return true, intent, nil
	}

	existing, err := s.GetPaymentIntent(ctx, intent.ProviderID)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

// GetPaymentIntent looks an intent up by the provider's id.
func (s *SQLiteStore) GetPaymentIntent(ctx context.Context, providerID string) (*models.PaymentIntent, error) {
	intent := &models.PaymentIntent{}
	var amount int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, payment_intent_id, user_id, amount_cents, currency, status, payment_method_types, created_at, updated_at
		 FROM payment_intents WHERE payment_intent_id = ?`,
		providerID,
	).Scan(&intent.ID, &intent.ProviderID, &intent.UserID, &amount,
		&intent.Currency, &intent.Status, &intent.PaymentMethodTypes, &intent.CreatedAt, &intent.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment intent %s: %w", providerID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	intent.Amount = cents(amount)
	return intent, nil
}

// SettlePaymentIntent performs the pending-to-terminal transition as a
// conditional update, and applies the amount to the user's balance in
// the same transaction when the transition is to succeeded. When two
// callers race (direct confirm vs. webhook), the conditional update
// admits exactly one of them; the loser gets applied=false and the
// already-settled row.
func (s *SQLiteStore) SettlePaymentIntent(ctx context.Context, providerID, status string) (bool, *models.PaymentIntent, error) {
	if status != models.IntentSucceeded && status != models.IntentFailed {
		return false, nil, fmt.Errorf("settle to non-terminal status %q", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_intents SET status = ?, updated_at = ?
		 WHERE payment_intent_id = ? AND status = ?`,
		status, now, providerID, models.IntentPending,
	)
	if err != nil {
		return false, nil, fmt.Errorf("failed to update intent status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if n == 0 {
		// Lost the race or the intent is already terminal; nothing to
		// apply. Read outside the transaction.
		tx.Rollback()
		intent, err := s.GetPaymentIntent(ctx, providerID)
		if err != nil {
			return false, nil, err
		}
		return false, intent, nil
	}

	if status == models.IntentSucceeded {
		var amount int64
		var userID int64
		err = tx.QueryRowContext(ctx,
			"SELECT user_id, amount_cents FROM payment_intents WHERE payment_intent_id = ?",
			providerID,
		).Scan(&userID, &amount)
		if err != nil {
			return false, nil, fmt.Errorf("failed to read intent for balance: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO balances (user_id, balance_cents, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			     balance_cents = balance_cents + excluded.balance_cents,
			     updated_at = excluded.updated_at`,
			userID, amount, now,
		)
		if err != nil {
			return false, nil, fmt.Errorf("failed to apply balance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	intent, err := s.GetPaymentIntent(ctx, providerID)
	if err != nil {
		return false, nil, err
	}
	return true, intent, nil
}

// GetBalance returns the user's balance row, or a zero balance if the
// user has no settled intents yet.
func (s *SQLiteStore) GetBalance(ctx context.Context, userID int64) (*models.Balance, error) {
	balance := &models.Balance{}
	var amount int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, balance_cents, updated_at FROM balances WHERE user_id = ?",
		userID,
	).Scan(&balance.ID, &balance.UserID, &amount, &balance.UpdatedAt)
	if err == sql.ErrNoRows {
		return storage.ZeroBalance(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	balance.Balance = cents(amount)
	return balance, nil
}

// ListPaymentIntentsByUser returns the user's intents newest-first.
func (s *SQLiteStore) ListPaymentIntentsByUser(ctx context.Context, userID int64) ([]*models.PaymentIntent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_intent_id, user_id, amount_cents, currency, status, payment_method_types, created_at, updated_at
		 FROM payment_intents WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment intents: %w", err)
	}
	defer rows.Close()

	var intents []*models.PaymentIntent
	for rows.Next() {
		intent := &models.PaymentIntent{}
		var amount int64
		if err := rows.Scan(&intent.ID, &intent.ProviderID, &intent.UserID, &amount,
			&intent.Currency, &intent.Status, &intent.PaymentMethodTypes, &intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment intent: %w", err)
		}
		intent.Amount = cents(amount)
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment intents: %w", err)
	}
	return intents, nil
}
