package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/database/users"
	"github.com/mrlokans/animedex/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = users.ErrUserNotFound
	ErrUserExists       = users.ErrUserExists
	ErrAuthRequired     = errors.New("authentication required")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrImageInvalid     = errors.New("profile image must be an http(s) URL or a local path")
)

// UserStore is the account storage used by Service.
type UserStore interface {
	CreateUser(user *entities.User) error
	GetUserByID(id uint) (*entities.User, error)
	GetUserByUsername(username string) (*entities.User, error)
	HasUsers() (bool, error)
	UpdateProfileImage(username, image string) (*entities.User, error)
	RecordLoginSuccess(id uint, at time.Time) error
	RecordLoginFailure(id uint, failedCount int, lockedUntil *time.Time) error
}

// Service handles registration, credential checks and profile updates.
type Service struct {
	users  UserStore
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(store UserStore, cfg config.Auth) *Service {
	return &Service{
		users:  store,
		config: cfg,
		now:    time.Now,
	}
}

// Register creates a new account. An empty profileImage falls back to the
// configured default picture. Registration never modifies an existing account.
func (s *Service) Register(username, email, password, profileImage string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	// Validate username format: 3-64 chars, alphanumeric + underscore/hyphen
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}

	// Validate email format and length (RFC 5321 limit is 254)
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	profileImage = strings.TrimSpace(profileImage)
	if profileImage == "" {
		profileImage = s.config.DefaultProfileImage
	} else if !validImage(profileImage) {
		return nil, ErrImageInvalid
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		ProfileImage: profileImage,
	}

	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user, now)
		return nil, err
	}

	if err := s.users.RecordLoginSuccess(user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	user.FailedLoginCount++

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	var lockedUntil *time.Time
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		until := now.Add(lockoutDuration)
		lockedUntil = &until
	}

	_ = s.users.RecordLoginFailure(user.ID, user.FailedLoginCount, lockedUntil)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.users.GetUserByID(id)
}

// UpdateProfileImage stores a new profile picture for username.
func (s *Service) UpdateProfileImage(username, image string) (*entities.User, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		image = s.config.DefaultProfileImage
	} else if !validImage(image) {
		return nil, ErrImageInvalid
	}
	return s.users.UpdateProfileImage(username, image)
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	return s.users.HasUsers()
}

// IsAuthEnabled returns true if accounts and favourites are available.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

func validImage(image string) bool {
	if strings.HasPrefix(image, "https://") || strings.HasPrefix(image, "http://") {
		return len(image) <= 2048
	}
	return strings.HasPrefix(image, "/") && !strings.HasPrefix(image, "//")
}
