package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
	"github.com/splitledger/splitledger/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedGroup creates n users and a group containing all of them.
func seedGroup(t *testing.T, store storage.Store, n int) (int64, []int64) {
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
	if n > 1 {
		if err := store.AddGroupMembers(ctx, group.ID, userIDs[1:]); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}
	}
	return group.ID, userIDs
}
