// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations the services need. The
// abstraction keeps the service layer independent of the backend; the
// SQLite implementation lives in storage/sqlite.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore
	PaymentStore
	TokenStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a new user and populates user.ID.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound when the user does not exist.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// GroupStore persists groups and their membership.
type GroupStore interface {
	// CreateGroup inserts a group, adds the creator as its first
	// member, and populates group.ID.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns the group with its member ids, or ErrNotFound.
	GetGroup(ctx context.Context, groupID int64) (*models.Group, error)

	// AddGroupMembers adds the given users to the group, skipping ones
	// already present.
	AddGroupMembers(ctx context.Context, groupID int64, userIDs []int64) error

	// IsGroupMember reports whether the user currently belongs to the
	// group.
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// ExpenseStore persists expenses and their splits. Splits have no
// lifecycle of their own: they are written in the expense's transaction
// and die with it.
type ExpenseStore interface {
	// CreateExpense inserts the expense and all of its splits in one
	// transaction and populates expense.ID and the split ids. Any
	// failed split insert rolls back the expense row too.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense returns the expense with its splits, or ErrNotFound.
	// Soft-deleted expenses are not returned.
	GetExpense(ctx context.Context, expenseID int64) (*models.Expense, error)

	// ListExpensesByGroup pages the group's live expenses newest-first,
	// each with its splits, and returns the total live count.
	ListExpensesByGroup(ctx context.Context, groupID int64, page, perPage int) ([]*models.Expense, int, error)

	// ExpenseDescriptionExists reports whether a live expense with the
	// description already exists in the group.
	ExpenseDescriptionExists(ctx context.Context, groupID int64, description string) (bool, error)

	// DeleteExpense soft-deletes the expense, freeing its description
	// for reuse. Returns ErrNotFound if no live expense matches.
	DeleteExpense(ctx context.Context, expenseID int64) error
}

// PaymentStore persists payment intents and balances.
type PaymentStore interface {
	// CreatePaymentIntent inserts the intent keyed by its provider id.
	// If a row with the same provider id already exists the existing
	// row is returned with created=false; the unique constraint makes
	// creation idempotent across retries.
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (created bool, existing *models.PaymentIntent, err error)

	// GetPaymentIntent looks an intent up by provider id, or
	// ErrNotFound.
	GetPaymentIntent(ctx context.Context, providerID string) (*models.PaymentIntent, error)

	// SettlePaymentIntent conditionally moves the intent from pending
	// to the given terminal status. When the transition applies and the
	// status is succeeded, the user's balance is adjusted by the intent
	// amount in the same transaction. applied=false means another
	// caller already settled the intent; the stored row is returned
	// either way.
	SettlePaymentIntent(ctx context.Context, providerID, status string) (applied bool, intent *models.PaymentIntent, err error)

	// GetBalance returns the user's balance row, or a zero balance if
	// none exists yet.
	GetBalance(ctx context.Context, userID int64) (*models.Balance, error)

	// ListPaymentIntentsByUser returns the user's intents newest-first.
	ListPaymentIntentsByUser(ctx context.Context, userID int64) ([]*models.PaymentIntent, error)
}

// TokenStore is the persistent logout blacklist. Rows are keyed by the
// token's jti claim and kept until the token's own expiry, so a revoked
// token stays revoked across restarts and instances.
type TokenStore interface {
	// RevokeToken records the jti until expiresAt (Unix seconds).
	RevokeToken(ctx context.Context, jti string, expiresAt int64) error

	// IsTokenRevoked reports whether the jti is currently blacklisted.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpiredTokens drops blacklist rows whose expiry has passed
	// and returns how many were removed.
	PurgeExpiredTokens(ctx context.Context, now int64) (int64, error)
}

// ZeroBalance builds the empty balance returned for users with no
// settled intents.
func ZeroBalance(userID int64) *models.Balance {
	return &models.Balance{UserID: userID, Balance: money.Cents(0)}
}
