package models

import "github.com/splitledger/splitledger/internal/money"

// Expense represents a shared cost recorded against a group. An expense
// owns its splits: they are created in the same transaction and a
// deleted expense takes its splits with it. Once the splits are
// committed the expense is immutable; there is no partial-edit path.
type Expense struct {
	// ID is the database-assigned identifier.
	ID int64

	// GroupID is the group this expense belongs to.
	GroupID int64

	// CreatedBy is the user who recorded the expense.
	CreatedBy int64

	// PaidBy is the participant who fronted the full amount.
	PaidBy int64

	// Amount is the total expense amount in minor units. Always > 0.
	Amount money.Cents

	// Currency is the 3-letter ISO 4217 code, stored uppercase.
	Currency string

	// Description identifies the expense. Unique among the group's
	// non-deleted expenses.
	Description string

	// SplitType is the wire tag of the strategy used to divide the
	// amount: "equal", "percentage" or "custom_amount".
	SplitType string

	// Splits are the per-participant obligations. Their amounts sum to
	// Amount exactly.
	Splits []ExpenseSplit

	// Deleted marks a soft-deleted expense. Deleted expenses are
	// excluded from listings and from the duplicate-description rule.
	Deleted bool

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpenseSplit is one participant's computed obligation for an expense.
type ExpenseSplit struct {
	ID        int64
	ExpenseID int64
	UserID    int64
	Name      string
	Amount    money.Cents
}
