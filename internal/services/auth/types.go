package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too short")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRefreshNotFound    = errors.New("refresh token not found")
)

const MinPasswordLength = 6

// RateLimitedError carries how long the caller should wait before retrying.
type RateLimitedError struct {
	RetryAfterSec int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %ds", e.RetryAfterSec)
}

type SessionRecord struct {
	SID       string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    uuid.UUID
	SID       string
	ExpiresAt time.Time
}

type AuthResult struct {
	AccessToken    string
	RefreshToken   string
	AccessExpires  time.Time
	SessionExpires time.Time
	User           model.User
}

type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// Event is an auth state change pushed to the user's open clients.
type Event struct {
	Type   enums.AuthEvent `json:"type"`
	UserID uuid.UUID       `json:"user_id"`
	At     time.Time       `json:"at"`
}
