package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"errors"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(dbPath)
	})
	return store
}

// seedGroup creates n users and a group containing all of them,
// returning the group id and the user ids in creation order.
func seedGroup(t *testing.T, store *SQLiteStore, n int) (int64, []int64) {
	t.Helper()
	ctx := context.Background()

	names := []string{"Alice", "Bob", "Cara", "Dan", "Eve", "Frank"}
	userIDs := make([]int64, n)
	for i := 0; i < n; i++ {
		user := models.NewUser(names[i]+"@example.com", names[i], "x")
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		userIDs[i] = user.ID
	}

	group := &models.Group{Name: "Trip", CreatedBy: userIDs[0]}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := store.AddGroupMembers(ctx, group.ID, userIDs[1:]); err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}
	return group.ID, userIDs
}

func TestUsersAndGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	groupID, userIDs := seedGroup(t, store, 3)

	t.Run("membership", func(t *testing.T) {
		for _, id := range userIDs {
			ok, err := store.IsGroupMember(ctx, groupID, id)
			if err != nil {
				t.Fatalf("IsGroupMember failed: %v", err)
			}
			if !ok {
				t.Errorf("user %d should be a member", id)
			}
		}
		ok, err := store.IsGroupMember(ctx, groupID, 9999)
		if err != nil {
			t.Fatalf("IsGroupMember failed: %v", err)
		}
		if ok {
			t.Error("unknown user should not be a member")
		}
	})

	t.Run("GetGroup returns members", func(t *testing.T) {
		group, err := store.GetGroup(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(group.Members) != 3 {
			t.Errorf("expected 3 members, got %d", len(group.Members))
		}
	})

	t.Run("duplicate member add is a no-op", func(t *testing.T) {
		if err := store.AddGroupMembers(ctx, groupID, userIDs[:1]); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}
		group, err := store.GetGroup(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(group.Members) != 3 {
			t.Errorf("expected 3 members after re-add, got %d", len(group.Members))
		}
	})

	t.Run("GetUserByEmail missing user", func(t *testing.T) {
		user, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}
	})
}

func TestCreateAndGetExpense(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	groupID, userIDs := seedGroup(t, store, 3)

	expense := &models.Expense{
		GroupID:     groupID,
		CreatedBy:   userIDs[0],
		PaidBy:      userIDs[0],
		Amount:      9000,
		Currency:    "USD",
		Description: "Dinner",
		SplitType:   "equal",
		Splits: []models.ExpenseSplit{
			{UserID: userIDs[0], Name: "Alice", Amount: 3000},
			{UserID: userIDs[1], Name: "Bob", Amount: 3000},
			{UserID: userIDs[2], Name: "Cara", Amount: 3000},
		},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if expense.ID == 0 {
		t.Error("expected expense ID to be assigned")
	}
	if expense.CreatedAt == 0 {
		t.Error("expected CreatedAt to be set")
	}

	retrieved, err := store.GetExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if retrieved.Amount != 9000 || retrieved.Description != "Dinner" {
		t.Errorf("unexpected expense: %+v", retrieved)
	}
	if len(retrieved.Splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(retrieved.Splits))
	}
	for i, split := range retrieved.Splits {
		if split.Amount != 3000 {
			t.Errorf("split[%d] = %d cents, want 3000", i, split.Amount)
		}
		if split.ExpenseID != expense.ID {
			t.Errorf("split[%d] expense_id = %d, want %d", i, split.ExpenseID, expense.ID)
		}
	}
}

// TestCreateExpenseRollsBack verifies the all-or-nothing write: a split
// insert that violates a constraint must take the expense row with it.
func TestCreateExpenseRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	groupID, userIDs := seedGroup(t, store, 2)

	expense := &models.Expense{
		GroupID:     groupID,
		CreatedBy:   userIDs[0],
		PaidBy:      userIDs[0],
		Amount:      5000,
		Currency:    "USD",
		Description: "Broken",
		SplitType:   "equal",
		Splits: []models.ExpenseSplit{
			{UserID: userIDs[0], Name: "Alice", Amount: 2500},
			{UserID: 424242, Name: "Ghost", Amount: 2500}, // violates FK on users
		},
	}
	if err := store.CreateExpense(ctx, expense); err == nil {
		t.Fatal("expected CreateExpense to fail on the ghost participant")
	}

	exists, err := store.ExpenseDescriptionExists(ctx, groupID, "Broken")
	if err != nil {
		t.Fatalf("ExpenseDescriptionExists failed: %v", err)
	}
	if exists {
		t.Error("expense row survived a failed split insert")
	}

	_, total, err := store.ListExpensesByGroup(ctx, groupID, 1, 10)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 expenses after rollback, got %d", total)
	}
}

func TestListExpensesPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	groupID, userIDs := seedGroup(t, store, 2)

	for i, desc := range []string{"One", "Two", "Three", "Four", "Five"} {
		expense := &models.Expense{
			GroupID:     groupID,
			CreatedBy:   userIDs[0],
			PaidBy:      userIDs[0],
			Amount:      1000,
			Currency:    "USD",
			Description: desc,
			SplitType:   "equal",
			CreatedAt:   int64(1000 + i),
			Splits: []models.ExpenseSplit{
				{UserID: userIDs[0], Name: "Alice", Amount: 500},
				{UserID: userIDs[1], Name: "Bob", Amount: 500},
			},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense(%s) failed: %v", desc, err)
		}
	}

	page1, total, err := store.ListExpensesByGroup(ctx, groupID, 1, 2)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 has %d expenses, want 2", len(page1))
	}
	// Newest first.
	if page1[0].Description != "Five" || page1[1].Description != "Four" {
		t.Errorf("page 1 order = %s, %s", page1[0].Description, page1[1].Description)
	}
	for _, e := range page1 {
		if len(e.Splits) != 2 {
			t.Errorf("expense %s missing splits", e.Description)
		}
	}

	page3, _, err := store.ListExpensesByGroup(ctx, groupID, 3, 2)
	if err != nil {
		t.Fatalf("ListExpensesByGroup page 3 failed: %v", err)
	}
	if len(page3) != 1 || page3[0].Description != "One" {
		t.Errorf("page 3 = %+v, want the single oldest expense", page3)
	}
}

func TestDuplicateDescription(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	groupID, userIDs := seedGroup(t, store, 2)

	mk := func(desc string) *models.Expense {
		return &models.Expense{
			GroupID: groupID, CreatedBy: userIDs[0], PaidBy: userIDs[0],
			Amount: 1000, Currency: "USD", Description: desc, SplitType: "equal",
			Splits: []models.ExpenseSplit{
				{UserID: userIDs[0], Name: "Alice", Amount: 500},
				{UserID: userIDs[1], Name: "Bob", Amount: 500},
			},
		}
	}

	first := mk("Groceries")
	if err := store.CreateExpense(ctx, first); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	exists, err := store.ExpenseDescriptionExists(ctx, groupID, "Groceries")
	if err != nil {
		t.Fatalf("ExpenseDescriptionExists failed: %v", err)
	}
	if !exists {
		t.Error("expected description to be taken")
	}

	// The partial unique index is a second line of defense behind the
	// service check.
	if err := store.CreateExpense(ctx, mk("Groceries")); err == nil {
		t.Error("expected duplicate description insert to fail")
	}

	// Soft delete frees the description.
	if err := store.DeleteExpense(ctx, first.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	exists, err = store.ExpenseDescriptionExists(ctx, groupID, "Groceries")
	if err != nil {
		t.Fatalf("ExpenseDescriptionExists failed: %v", err)
	}
	if exists {
		t.Error("soft-deleted expense should free its description")
	}
	if err := store.CreateExpense(ctx, mk("Groceries")); err != nil {
		t.Errorf("reusing a freed description failed: %v", err)
	}

	if _, err := store.GetExpense(ctx, first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetExpense on deleted expense = %v, want ErrNotFound", err)
	}
}
