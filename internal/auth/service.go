package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/macchain/backend/internal/email"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrEmailUnavailable   = errors.New("email delivery is not configured")
)

const (
	// TokenTTL is how long an issued JWT stays valid
	TokenTTL = 24 * time.Hour
	// ResetTokenTTL is how long a password reset link stays valid
	ResetTokenTTL = time.Hour
)

// Service handles all authentication operations
type Service struct {
	db        *gorm.DB
	users     repository.UserRepository
	jwtSecret []byte
	sender    email.Sender
	now       func() time.Time
}

// NewService creates a new authentication service. sender may be nil, in
// which case password reset requests fail with ErrEmailUnavailable.
func NewService(db *gorm.DB, jwtSecret []byte, sender email.Sender) *Service {
	return &Service{
		db:        db,
		users:     repository.NewUserRepository(db),
		jwtSecret: jwtSecret,
		sender:    sender,
		now:       time.Now,
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Claims are the JWT claims MacChain issues
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Register creates a new user with email/password
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        strings.TrimSpace(req.Email),
		Username:     strings.TrimSpace(req.Username),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hashedPassword),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID))
	return s.generateAuthResponse(&user)
}

// Login authenticates with email/password
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	user.LastActiveAt = &now
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"last_active_at": now}); err != nil {
		logger.Log.Warn("Failed to update last active", logger.WithUserID(user.ID), zap.Error(err))
	}

	return s.generateAuthResponse(user)
}

// GenerateTokenForUser issues a token without a password check; used by
// tooling that already trusts the caller.
func (s *Service) GenerateTokenForUser(user *models.User) (*AuthResponse, error) {
	return s.generateAuthResponse(user)
}

func (s *Service) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(TokenTTL)

	claims := Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken verifies signature and expiry without touching the database
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken validates a JWT and loads the current user row
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(context.Background(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

// RequestPasswordReset emails a single-use reset token. Unknown emails
// succeed silently so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if s.sender == nil {
		return ErrEmailUnavailable
	}

	user, err := s.users.GetUserByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	tokenStr, err := randomToken(32)
	if err != nil {
		return err
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Token:     tokenStr,
		ExpiresAt: s.now().Add(ResetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if err := s.sender.SendPasswordReset(ctx, user.Email, tokenStr); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	logger.Log.Info("Password reset requested", logger.WithUserID(user.ID))
	return nil
}

// ResetPassword consumes a reset token and sets the new password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var resetToken models.PasswordReset
		err := tx.Where("token = ? AND used = ? AND expires_at > ?", token, false, s.now()).
			First(&resetToken).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		} else if err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		// the used=false guard makes a concurrent second consume a no-op
		res := tx.Model(&models.PasswordReset{}).
			Where("id = ? AND used = ?", resetToken.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}

		return tx.Model(&models.User{}).
			Where("id = ?", resetToken.UserID).
			Update("password_hash", string(hashedPassword)).Error
	})
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
