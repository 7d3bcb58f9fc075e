package core

import (
	"context"
	"time"
)

// User represents an authenticated system user scoped to a company. The
// company id of the session always comes from this record, never from the
// client payload.
type User struct {
	ID           int
	CompanyID    int
	CompanyCode  string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user lookup operations.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)
}
