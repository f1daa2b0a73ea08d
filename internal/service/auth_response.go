package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/prperemyshlev/social-auth/internal/domain"
)

// openSession issues a token pair for the account and stores the refresh token's session
func (s *authService) openSession(ctx context.Context, account *domain.Account, deviceLabel string) (*domain.AuthResult, error) {
	pair, err := s.tokens.GenerateTokenPair(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	expiresAt := s.now().Add(s.tokens.RefreshTokenExpiry())
	if _, err := s.sessions.Create(ctx, account.ID, hashToken(pair.RefreshToken), deviceLabel, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &domain.AuthResult{
		Account:      account,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// hashToken hashes a refresh token using SHA256.
// Sessions store the hash, never the token itself.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
