// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("alice")
package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/mrlokans/animedex/internal/entities"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new account. An existing account with the same
// username or email is never modified; ErrUserExists is returned instead.
func (r *Repository) CreateUser(user *entities.User) error {
	var existing int64
	err := r.db.Model(&entities.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing > 0 {
		return ErrUserExists
	}

	if err := r.db.Create(user).Error; err != nil {
		// Lost a race with a concurrent registration
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// HasUsers returns true if any account exists.
func (r *Repository) HasUsers() (bool, error) {
	count, err := r.CountUsers()
	return count > 0, err
}

func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// UpdateProfileImage replaces the profile picture of an existing account.
func (r *Repository) UpdateProfileImage(username, image string) (*entities.User, error) {
	user, err := r.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	user.ProfileImage = image
	if err := r.db.Model(user).Update("profile_image", image).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile image: %w", err)
	}
	return user, nil
}

// RecordLoginSuccess resets the failure counters and stamps the login time.
func (r *Repository) RecordLoginSuccess(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordLoginFailure stores the new failure count and an optional lock expiry.
func (r *Repository) RecordLoginFailure(id uint, failedCount int, lockedUntil *time.Time) error {
	updates := map[string]any{
		"failed_login_count": failedCount,
	}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
