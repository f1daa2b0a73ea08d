package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/identity"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=interfaces.go

// AuthService is the only entry point the HTTP layer uses
type AuthService interface {
	// Login verifies a provider assertion, resolves the account and opens a session
	Login(ctx context.Context, provider domain.Provider, assertion identity.Assertion, deviceLabel string) (*domain.AuthResult, error)
	// Refresh rotates the session holding refreshToken and reissues both tokens
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	// Logout revokes the session holding refreshToken. Unknown tokens are ignored.
	Logout(ctx context.Context, refreshToken string) error
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	// DeleteAccount removes the account together with all of its sessions
	DeleteAccount(ctx context.Context, accountID string) error
	// ValidateAccessToken returns the account id carried by a valid access token
	ValidateAccessToken(ctx context.Context, token string) (string, error)
}

// TokenCodec issues and verifies the service's own access and refresh tokens
type TokenCodec interface {
	GenerateTokenPair(accountID string) (*domain.TokenPair, error)
	VerifyAccessToken(token string) (string, error)
	VerifyRefreshToken(token string) (string, error)
	RefreshTokenExpiry() time.Duration
}
