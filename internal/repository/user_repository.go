package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/macchain/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid input")
)

// UserRepository handles all database operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error
	TouchLastActive(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error

	GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error)
	GetTotalUserCount(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) TouchLastActive(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_active_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetUsers loads users by ID; unknown IDs are skipped
func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []*models.User
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, err
}

func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
