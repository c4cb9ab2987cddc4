package domain

import "time"

// User is an account of any role. Email doubles as the login identity.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
