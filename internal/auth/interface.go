package auth

import (
	"context"

	"github.com/macchain/backend/internal/models"
)

// AuthServiceInterface defines the contract for authentication operations.
// This enables mocking for unit tests without requiring a real database.
type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)

	ValidateToken(tokenString string) (*models.User, error)

	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Ensure Service implements AuthServiceInterface
var _ AuthServiceInterface = (*Service)(nil)
