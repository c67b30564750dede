package dto

import "time"

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthTokensResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresInSec int64        `json:"expires_in_sec"`
	User         UserResponse `json:"user"`
	Title        string       `json:"title,omitempty"`
	Redirect     string       `json:"redirect,omitempty"`
}

type SessionInfo struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStateResponse carries nulls, not an error, when nobody is signed in.
type SessionStateResponse struct {
	User    *UserResponse `json:"user"`
	Session *SessionInfo  `json:"session"`
}

type OKResponse struct {
	OK       bool   `json:"ok"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}
