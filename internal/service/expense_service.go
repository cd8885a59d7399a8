package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// ExpenseService is the expense ledger: it validates a split request,
// computes the shares, and persists the expense with its splits as one
// atomic write. Expenses are immutable once committed; the only
// lifecycle operation afterwards is a soft delete.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates an ExpenseService with the given storage
// backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// ExpenseInput is the boundary shape of an addExpense request. Amount
// is the decimal number from the wire; it is converted to cents here
// and nowhere else.
type ExpenseInput struct {
	Amount       float64
	Description  string
	GroupID      int64
	SplitType    string
	PaidBy       int64
	Currency     string
	Participants []calculator.Participant
}

// ExpensePage is one page of a group's expenses, newest first.
type ExpensePage struct {
	Expenses    []*models.Expense
	Total       int
	Pages       int
	CurrentPage int
}

// AddExpense validates the request, computes the splits, and persists
// everything atomically. Each precondition fails with its own sentinel
// so callers can distinguish bad input from membership violations and
// duplicates.
func (s *ExpenseService) AddExpense(ctx context.Context, userID int64, in ExpenseInput) (*models.Expense, error) {
	total, err := money.FromFloat(in.Amount)
	if err != nil || total <= 0 {
		metrics.SplitRejectionsTotal.Inc()
		return nil, fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	}
	if !money.ValidCurrency(in.Currency) {
		metrics.SplitRejectionsTotal.Inc()
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	currency := strings.ToUpper(in.Currency)
	if strings.TrimSpace(in.Description) == "" {
		metrics.SplitRejectionsTotal.Inc()
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}

	// Resolve the strategy once, at the boundary.
	strategy, err := calculator.ParseStrategy(in.SplitType)
	if err != nil {
		metrics.SplitRejectionsTotal.Inc()
		return nil, err
	}

	isMember, err := s.store.IsGroupMember(ctx, in.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		metrics.SplitRejectionsTotal.Inc()
		return nil, fmt.Errorf("%w: user %d is not a member of group %d", ErrPermission, userID, in.GroupID)
	}

	exists, err := s.store.ExpenseDescriptionExists(ctx, in.GroupID, in.Description)
	if err != nil {
		return nil, err
	}
	if exists {
		metrics.SplitRejectionsTotal.Inc()
		return nil, fmt.Errorf("%w: an expense named %q already exists in this group", ErrDuplicate, in.Description)
	}

	if err := s.validateParticipants(ctx, userID, in); err != nil {
		metrics.SplitRejectionsTotal.Inc()
		return nil, err
	}

	shares, err := strategy.Split(total, in.Participants)
	if err != nil {
		metrics.SplitRejectionsTotal.Inc()
		return nil, err
	}

	// The strategies guarantee this, but a miscomputed share list must
	// never reach the store: abort before anything is written.
	if sum := calculator.SumShares(shares); sum != total {
		metrics.SplitRejectionsTotal.Inc()
		return nil, fmt.Errorf("%w: shares sum to %d cents, expense is %d", ErrConsistency, sum, total)
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		CreatedBy:   userID,
		PaidBy:      in.PaidBy,
		Amount:      total,
		Currency:    currency,
		Description: in.Description,
		SplitType:   strategy.Tag(),
		Splits:      make([]models.ExpenseSplit, len(shares)),
	}
	for i, share := range shares {
		expense.Splits[i] = models.ExpenseSplit{
			UserID: share.UserID,
			Name:   share.Name,
			Amount: share.Amount,
		}
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("AddExpense: persist failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	metrics.ExpensesCreatedTotal.WithLabelValues(strategy.Tag()).Inc()
	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount", money.Format(expense.Amount, expense.Currency),
		"split_type", expense.SplitType,
		"participants", len(expense.Splits),
	)
	return expense, nil
}

// validateParticipants checks the participant list: non-empty, every
// participant a group member, the creator present exactly once, no
// duplicate users, and the payer among the participants.
func (s *ExpenseService) validateParticipants(ctx context.Context, userID int64, in ExpenseInput) error {
	if len(in.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant required", ErrValidation)
	}

	seen := make(map[int64]bool, len(in.Participants))
	creatorCount := 0
	payerPresent := false
	for _, p := range in.Participants {
		if seen[p.UserID] {
			return fmt.Errorf("%w: participant %d listed twice", ErrValidation, p.UserID)
		}
		seen[p.UserID] = true

		if p.UserID == userID {
			creatorCount++
		}
		if p.UserID == in.PaidBy {
			payerPresent = true
		}

		isMember, err := s.store.IsGroupMember(ctx, in.GroupID, p.UserID)
		if err != nil {
			return err
		}
		if !isMember {
			return fmt.Errorf("%w: participant %d is not a member of group %d", ErrValidation, p.UserID, in.GroupID)
		}
	}

	if creatorCount != 1 {
		return fmt.Errorf("%w: the creator must be listed as a participant exactly once", ErrValidation)
	}
	if !payerPresent {
		return fmt.Errorf("%w: paid_by %d must be one of the participants", ErrValidation, in.PaidBy)
	}
	return nil
}

// GetExpenses pages a group's expenses newest-first with their splits.
// Requires membership.
func (s *ExpenseService) GetExpenses(ctx context.Context, userID, groupID int64, page, perPage int) (*ExpensePage, error) {
	if page < 1 || perPage < 1 {
		return nil, fmt.Errorf("%w: page and per_page must be >= 1", ErrValidation)
	}

	isMember, err := s.store.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: user %d is not a member of group %d", ErrPermission, userID, groupID)
	}

	expenses, total, err := s.store.ListExpensesByGroup(ctx, groupID, page, perPage)
	if err != nil {
		return nil, err
	}

	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return &ExpensePage{
		Expenses:    expenses,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	}, nil
}

// GetForUser returns an expense with its splits, provided the caller
// belongs to the expense's group.
func (s *ExpenseService) GetForUser(ctx context.Context, userID, expenseID int64) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.store.IsGroupMember(ctx, expense.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: user %d is not a member of group %d", ErrPermission, userID, expense.GroupID)
	}
	return expense, nil
}

// DeleteExpense soft-deletes an expense. Only participants of the
// expense's group may delete it.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	if _, err := s.GetForUser(ctx, userID, expenseID); err != nil {
		return err
	}
	return s.store.DeleteExpense(ctx, expenseID)
}
