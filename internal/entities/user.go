package entities

import "time"

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email            string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	ProfileImage     string     `gorm:"size:2048" json:"profile_image"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsLocked reports whether the account is temporarily locked at the given time.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
