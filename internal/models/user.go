package models

import (
	"time"
)

// User is an operator account. Username doubles as the actor recorded on pick requests.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	DisplayName  *string    `json:"display_name,omitempty"`
	Roles        []string   `json:"roles"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// CreateUserRequest represents the request body for creating a new user
type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,min=2,max=64"`
	Password    string   `json:"password" validate:"required,min=8"`
	DisplayName *string  `json:"display_name,omitempty" validate:"omitempty,max=200"`
	Roles       []string `json:"roles" validate:"required,min=1,dive,oneof=admin sales picker"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// HasRole checks if the user has a specific role
func (u *User) HasRole(role string) bool {
	for _, userRole := range u.Roles {
		if userRole == role {
			return true
		}
	}
	return false
}

// GetDisplayName returns the user's display name
func (u *User) GetDisplayName() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
