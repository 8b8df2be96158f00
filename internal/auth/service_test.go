package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type capturedReset struct {
	to    string
	token string
}

type fakeSender struct {
	mu     sync.Mutex
	resets []capturedReset
}

func (f *fakeSender) SendPasswordReset(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, capturedReset{to: to, token: token})
	return nil
}

func (f *fakeSender) SendNotification(context.Context, string, string, string) error {
	return nil
}

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	sender      *fakeSender
	authService *Service
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = testutil.NewTestDB(suite.T())
	suite.sender = &fakeSender{}
	suite.authService = NewService(suite.db, []byte("test-jwt-secret"), suite.sender)
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.authService.Register(context.Background(), RegisterRequest{
		Email:       email,
		Username:    username,
		Password:    "password123",
		DisplayName: "Test Reader",
	})
	require.NoError(suite.T(), err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegister() {
	resp := suite.register("reader@example.com", "reader")

	assert.NotEmpty(suite.T(), resp.Token)
	assert.Equal(suite.T(), "reader@example.com", resp.User.Email)
	assert.Equal(suite.T(), "reader", resp.User.Username)
	assert.NotEmpty(suite.T(), resp.User.ID)
	assert.WithinDuration(suite.T(), time.Now().Add(TokenTTL), resp.ExpiresAt, time.Minute)

	var stored models.User
	require.NoError(suite.T(), suite.db.First(&stored, "id = ?", resp.User.ID).Error)
	assert.NotEqual(suite.T(), "password123", stored.PasswordHash)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	suite.register("dup@example.com", "first")

	_, err := suite.authService.Register(context.Background(), RegisterRequest{
		Email: "DUP@example.com", Username: "second", Password: "password123", DisplayName: "x",
	})
	assert.ErrorIs(suite.T(), err, ErrUserExists)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateUsername() {
	suite.register("one@example.com", "samename")

	_, err := suite.authService.Register(context.Background(), RegisterRequest{
		Email: "two@example.com", Username: "SameName", Password: "password123", DisplayName: "x",
	})
	assert.ErrorIs(suite.T(), err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	suite.register("login@example.com", "loginuser")

	resp, err := suite.authService.Login(context.Background(), LoginRequest{
		Email: "login@example.com", Password: "password123",
	})
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.Token)
	assert.NotNil(suite.T(), resp.User.LastActiveAt)

	_, err = suite.authService.Login(context.Background(), LoginRequest{
		Email: "login@example.com", Password: "wrong-password",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	_, err = suite.authService.Login(context.Background(), LoginRequest{
		Email: "nobody@example.com", Password: "password123",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	resp := suite.register("token@example.com", "tokenuser")

	user, err := suite.authService.ValidateToken(resp.Token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), resp.User.ID, user.ID)

	claims, err := suite.authService.ParseToken(resp.Token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "tokenuser", claims.Username)
	assert.False(suite.T(), claims.IsAdmin)

	_, err = suite.authService.ValidateToken("not-a-token")
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)

	other := NewService(suite.db, []byte("another-secret"), nil)
	_, err = other.ValidateToken(resp.Token)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateTokenExpired() {
	resp := suite.register("expired@example.com", "expired")

	suite.authService.now = func() time.Time { return time.Now().Add(TokenTTL + time.Hour) }
	_, err := suite.authService.ValidateToken(resp.Token)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateTokenDeletedUser() {
	resp := suite.register("gone@example.com", "gone")
	require.NoError(suite.T(), suite.db.Delete(&models.User{}, "id = ?", resp.User.ID).Error)

	_, err := suite.authService.ValidateToken(resp.Token)
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestPasswordResetFlow() {
	ctx := context.Background()
	suite.register("reset@example.com", "resetuser")

	require.NoError(suite.T(), suite.authService.RequestPasswordReset(ctx, "reset@example.com"))
	require.Len(suite.T(), suite.sender.resets, 1)
	token := suite.sender.resets[0].token
	assert.Equal(suite.T(), "reset@example.com", suite.sender.resets[0].to)

	require.NoError(suite.T(), suite.authService.ResetPassword(ctx, token, "newpassword456"))

	_, err := suite.authService.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "newpassword456"})
	assert.NoError(suite.T(), err)
	_, err = suite.authService.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "password123"})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	// tokens are single use
	err = suite.authService.ResetPassword(ctx, token, "anotherpass789")
	assert.ErrorIs(suite.T(), err, ErrInvalidResetToken)
}

func (suite *AuthServiceTestSuite) TestPasswordResetUnknownEmail() {
	err := suite.authService.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), suite.sender.resets)
}

func (suite *AuthServiceTestSuite) TestPasswordResetExpired() {
	ctx := context.Background()
	suite.register("late@example.com", "late")
	require.NoError(suite.T(), suite.authService.RequestPasswordReset(ctx, "late@example.com"))
	token := suite.sender.resets[0].token

	suite.authService.now = func() time.Time { return time.Now().Add(ResetTokenTTL + time.Minute) }
	err := suite.authService.ResetPassword(ctx, token, "newpassword456")
	assert.ErrorIs(suite.T(), err, ErrInvalidResetToken)
}

func (suite *AuthServiceTestSuite) TestPasswordResetWithoutSender() {
	noMail := NewService(suite.db, []byte("test-jwt-secret"), nil)
	err := noMail.RequestPasswordReset(context.Background(), "anyone@example.com")
	assert.ErrorIs(suite.T(), err, ErrEmailUnavailable)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
