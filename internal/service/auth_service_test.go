package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splitledger/splitledger/internal/auth"
)

func newAuthService(t *testing.T) (*AuthService, *auth.JWTManager) {
	t.Helper()
	store := newTestStore(t)
	jwtManager := auth.NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	svc := NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store)
	return svc, jwtManager
}

func TestRegisterAndLogin(t *testing.T) {
	svc, jwtManager := newAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "alice@example.com", "Alice", "correcthorse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == 0 || token == "" {
		t.Errorf("expected populated user and token, got %+v, %q", user, token)
	}

	claims, err := jwtManager.Validate(token)
	if err != nil {
		t.Fatalf("token from Register invalid: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims user mismatch: %d != %d", claims.UserID, user.ID)
	}

	if _, _, err := svc.Register(ctx, "alice@example.com", "Alice2", "correcthorse"); !errors.Is(err, auth.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "bob@example.com", "Bob", "short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "", "Nobody", "correcthorse"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for empty email, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "correcthorse"); err != nil {
		t.Errorf("Login failed: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice@example.com", "wrongpass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "correcthorse"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	store := newTestStore(t)
	jwtManager := auth.NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	svc := NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "alice@example.com", "Alice", "correcthorse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	claims, err := jwtManager.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	revoked, err := store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		t.Fatalf("IsTokenRevoked failed: %v", err)
	}
	if !revoked {
		t.Error("token should be blacklisted after logout")
	}

	if err := svc.Logout(ctx, "not.a.token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGroupService(t *testing.T) {
	store := newTestStore(t)
	svc := NewGroupService(store)
	ctx := context.Background()

	_, userIDs := seedGroup(t, store, 3)

	group, err := svc.CreateGroup(ctx, userIDs[0], "Weekend")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if len(group.Members) != 1 || group.Members[0] != userIDs[0] {
		t.Errorf("creator should be the only initial member: %+v", group.Members)
	}

	if _, err := svc.CreateGroup(ctx, userIDs[0], "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for blank name, got %v", err)
	}

	group, err = svc.AddMembers(ctx, userIDs[0], group.ID, userIDs[1:])
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if len(group.Members) != 3 {
		t.Errorf("expected 3 members, got %d", len(group.Members))
	}

	if _, err := svc.AddMembers(ctx, 999999, group.ID, userIDs[1:]); !errors.Is(err, ErrPermission) {
		t.Errorf("expected ErrPermission for non-member inviter, got %v", err)
	}
	if _, err := svc.AddMembers(ctx, userIDs[0], group.ID, []int64{999999}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown user, got %v", err)
	}

	if _, err := svc.GetGroup(ctx, userIDs[1], group.ID); err != nil {
		t.Errorf("member GetGroup failed: %v", err)
	}
	if _, err := svc.GetGroup(ctx, 999999, group.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("expected ErrPermission, got %v", err)
	}
}
