package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// CreateExpense inserts the expense and its splits atomically. If any
// split insert fails the whole transaction rolls back, so an expense
// row never persists without its splits.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (group_id, created_by, paid_by, amount_cents, currency, description, split_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.GroupID, expense.CreatedBy, expense.PaidBy, int64(expense.Amount),
		expense.Currency, expense.Description, expense.SplitType, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	expenseID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read expense id: %w", err)
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		split.ExpenseID = expenseID
		res, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id, name, amount_cents) VALUES (?, ?, ?, ?)",
			expenseID, split.UserID, split.Name, int64(split.Amount),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split for user %d: %w", split.UserID, err)
		}
		if split.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read split id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	expense.ID = expenseID
	return nil
}

// GetExpense retrieves a live expense by ID, including its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID int64) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, created_by, paid_by, amount_cents, currency, description, split_type, created_at
		 FROM expenses WHERE id = ? AND deleted = 0`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.CreatedBy, &expense.PaidBy,
		&amount, &expense.Currency, &expense.Description, &expense.SplitType, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %d: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.Amount = cents(amount)

	if err := s.loadSplits(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup pages the group's live expenses newest-first with
// their splits and the total live count.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID int64, page, perPage int) ([]*models.Expense, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expenses WHERE group_id = ? AND deleted = 0",
		groupID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, created_by, paid_by, amount_cents, currency, description, split_type, created_at
		 FROM expenses WHERE group_id = ? AND deleted = 0
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		groupID, perPage, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var amount int64
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.CreatedBy, &expense.PaidBy,
			&amount, &expense.Currency, &expense.Description, &expense.SplitType, &expense.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.Amount = cents(amount)
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		if err := s.loadSplits(ctx, expense); err != nil {
			return nil, 0, err
		}
	}

	return expenses, total, nil
}

// ExpenseDescriptionExists reports whether a live expense in the group
// already carries the description.
func (s *SQLiteStore) ExpenseDescriptionExists(ctx context.Context, groupID int64, description string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM expenses WHERE group_id = ? AND description = ? AND deleted = 0",
		groupID, description,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check expense description: %w", err)
	}
	return true, nil
}

// DeleteExpense soft-deletes the expense so its description becomes
// reusable. Splits stay attached to the dead row for audit.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET deleted = 1 WHERE id = ? AND deleted = 0",
		expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, expense *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, expense_id, user_id, name, amount_cents FROM expense_splits WHERE expense_id = ? ORDER BY id",
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	expense.Splits = nil
	for rows.Next() {
		var split models.ExpenseSplit
		var amount int64
		if err := rows.Scan(&split.ID, &split.ExpenseID, &split.UserID, &split.Name, &amount); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		split.Amount = cents(amount)
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}
