package domain

import "github.com/golang-jwt/jwt/v5"

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

// TokenClaims represents JWT token claims
type TokenClaims struct {
	AccountID string    `json:"accountId"`
	Type      TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by every flow that issues credentials
type AuthResult struct {
	Account      *Account
	AccessToken  string
	RefreshToken string
}
