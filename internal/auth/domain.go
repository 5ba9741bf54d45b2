package auth

import "time"

// Account represents the credential side of a user record.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
