package model

import (
	"strings"
	"time"
)

// User is an account owner. Rows are never deleted.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lowercases and trims an email for storage and comparison,
// per the uniqueness invariant in spec §3.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PublicUser is the subset of a User ever returned to the client.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Public strips all server-internal fields from a User.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email}
}
