package dto

import (
	"time"

	"github.com/spec-kit/job-tracker/internal/domain"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string      `json:"token"`
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// PasswordResetRequest payload for requesting a reset link.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public view of an account. The password hash is never included.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewAuthResponse maps a signed-in user.
func NewAuthResponse(user *domain.User, token string) AuthResponse {
	return AuthResponse{Token: token, ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
