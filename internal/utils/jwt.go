package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/social-auth/internal/domain"
)

// JWTManager issues and verifies HS256 access and refresh tokens.
// Each token class has its own secret; verification is stateless.
type JWTManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(accessSecret, refreshSecret string, accessTokenExpiry, refreshTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
}

// GenerateAccessToken generates a short-lived access token for the account
func (j *JWTManager) GenerateAccessToken(accountID string) (string, error) {
	return j.sign(accountID, domain.AccessTokenType, j.accessSecret, j.accessTokenExpiry)
}

// GenerateRefreshToken generates a long-lived refresh token for the account
func (j *JWTManager) GenerateRefreshToken(accountID string) (string, error) {
	return j.sign(accountID, domain.RefreshTokenType, j.refreshSecret, j.refreshTokenExpiry)
}

// GenerateTokenPair issues a fresh access and refresh token for the account
func (j *JWTManager) GenerateTokenPair(accountID string) (*domain.TokenPair, error) {
	accessToken, err := j.GenerateAccessToken(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := j.GenerateRefreshToken(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyAccessToken returns the account id carried by a valid access token
func (j *JWTManager) VerifyAccessToken(tokenString string) (string, error) {
	return j.verify(tokenString, domain.AccessTokenType, j.accessSecret)
}

// VerifyRefreshToken returns the account id carried by a valid refresh token
func (j *JWTManager) VerifyRefreshToken(tokenString string) (string, error) {
	return j.verify(tokenString, domain.RefreshTokenType, j.refreshSecret)
}

// RefreshTokenExpiry returns the refresh token lifetime
func (j *JWTManager) RefreshTokenExpiry() time.Duration {
	return j.refreshTokenExpiry
}

func (j *JWTManager) sign(accountID string, tokenType domain.TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := j.now()
	claims := domain.TokenClaims{
		AccountID: accountID,
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

func (j *JWTManager) verify(tokenString string, tokenType domain.TokenType, secret []byte) (string, error) {
	claims := &domain.TokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%s token: %w", tokenType, domain.ErrTokenExpired)
		}
		return "", fmt.Errorf("%s token: %w: %v", tokenType, domain.ErrInvalidSignature, err)
	}

	if claims.Type != tokenType {
		return "", fmt.Errorf("unexpected token type %q: %w", claims.Type, domain.ErrInvalidSignature)
	}

	if claims.AccountID == "" {
		return "", fmt.Errorf("%s token without account id: %w", tokenType, domain.ErrInvalidSignature)
	}

	return claims.AccountID, nil
}
