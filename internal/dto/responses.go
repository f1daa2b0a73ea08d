package dto

import (
	"time"

	"github.com/prperemyshlev/social-auth/internal/domain"
)

// AccountResponse represents an account in responses
type AccountResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// AuthResponse represents a successful login or refresh
type AuthResponse struct {
	User         AccountResponse `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// NewAccountResponse builds the public view of an account
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Name:      account.DisplayName,
		AvatarURL: account.AvatarURL,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
		UpdatedAt: account.UpdatedAt.Format(time.RFC3339),
	}
}

// NewAuthResponse builds the response for a login or refresh
func NewAuthResponse(result *domain.AuthResult) AuthResponse {
	return AuthResponse{
		User:         NewAccountResponse(result.Account),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
}
