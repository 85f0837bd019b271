package domain

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC string
	IsActive     bool
	IsAdmin      bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is a user row decorated for the admin listing.
type UserSummary struct {
	User

	DeviceCount int
	InviteCode  string // empty for users created at bootstrap
}
