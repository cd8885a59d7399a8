package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/models"
)

// AuthService handles registration and session lifecycle. Logout
// records the token's jti in the blacklist until the token would have
// expired anyway, so a stolen token cannot outlive the session.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	blacklist     auth.TokenBlacklist
}

// NewAuthService creates an AuthService.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, blacklist auth.TokenBlacklist) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		blacklist:     blacklist,
	}
}

// Register creates an account and returns the user with a fresh token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.User, string, error) {
	if email == "" || displayName == "" {
		return nil, "", fmt.Errorf("%w: email and display name are required", ErrValidation)
	}

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, "", err
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Login authenticates the credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, "", err
	}

	slog.Info("User logged in", "user_id", user.ID)
	return user, token, nil
}

// Logout revokes the presented token. Revocation keys on the jti and
// keeps the entry until the token's own expiry, after which the purge
// job drops it.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.Validate(tokenString)
	if err != nil {
		return err
	}

	if err := s.blacklist.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Unix()); err != nil {
		return err
	}

	slog.Info("Token revoked", "user_id", claims.UserID, "jti", claims.ID)
	return nil
}
