package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/identity"
	"github.com/prperemyshlev/social-auth/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// authService implements AuthService interface
type authService struct {
	verifiers map[domain.Provider]identity.Verifier
	resolver  *AccountResolver
	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	tokens    TokenCodec
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service. Providers without a verifier
// are rejected with domain.ErrProviderDisabled.
func NewAuthService(
	repos *repository.Repositories,
	tokens TokenCodec,
	verifiers []identity.Verifier,
	metrics *Metrics,
	logger *zap.Logger,
) AuthService {
	byProvider := make(map[domain.Provider]identity.Verifier, len(verifiers))
	for _, v := range verifiers {
		byProvider[v.Provider()] = v
	}

	return &authService{
		verifiers: byProvider,
		resolver:  NewAccountResolver(repos.Accounts, logger),
		accounts:  repos.Accounts,
		sessions:  repos.Sessions,
		tokens:    tokens,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Login verifies the assertion and opens a session. Nothing is persisted
// when verification or account resolution fails.
func (s *authService) Login(ctx context.Context, provider domain.Provider, assertion identity.Assertion, deviceLabel string) (result *domain.AuthResult, err error) {
	defer func() { s.metrics.recordLogin(ctx, string(provider), err) }()

	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderDisabled, provider)
	}

	id, err := verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, fmt.Errorf("%s sign in: %w", provider, err)
	}

	account, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, account, deviceLabel)
}

// Refresh checks the stored session, then the token signature, and rotates
// the session in place. Of two concurrent refreshes with the same token only
// one wins the rotation; the other gets ErrInvalidRefreshToken.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (result *domain.AuthResult, err error) {
	defer func() { s.metrics.recordRefresh(ctx, err) }()

	if refreshToken == "" {
		return nil, domain.ErrInvalidRefreshToken
	}
	key := hashToken(refreshToken)

	session, err := s.sessions.FindValidByToken(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	accountID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err == nil && accountID != session.AccountID {
		err = fmt.Errorf("token account %s does not own session %s", accountID, session.ID)
	}
	if err != nil {
		if delErr := s.sessions.DeleteByToken(ctx, key); delErr != nil {
			s.logger.Error("failed to delete session with invalid refresh token",
				zap.String("session_id", session.ID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRefreshToken, err)
	}

	pair, err := s.tokens.GenerateTokenPair(session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	expiresAt := s.now().Add(s.tokens.RefreshTokenExpiry())

	var (
		account   *domain.Account
		rotateErr error
		g         errgroup.Group
	)
	g.Go(func() (err error) {
		account, err = s.accounts.GetByID(ctx, session.AccountID)
		return err
	})
	g.Go(func() error {
		_, rotateErr = s.sessions.Rotate(ctx, key, hashToken(pair.RefreshToken), expiresAt)
		return rotateErr
	})

	if err := g.Wait(); err != nil {
		switch {
		case errors.Is(rotateErr, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: session already rotated or revoked", domain.ErrInvalidRefreshToken)
		case rotateErr != nil:
			return nil, fmt.Errorf("failed to rotate session: %w", rotateErr)
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.ErrAccountNotFound
		default:
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
	}

	return &domain.AuthResult{
		Account:      account,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout is idempotent; only a storage failure is reported
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.sessions.DeleteByToken(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// GetAccount gets account information
func (s *authService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// DeleteAccount revokes every session before removing the account row
func (s *authService) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.sessions.DeleteAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.logger.Info("account deleted", zap.String("account_id", accountID))
	return nil
}

// ValidateAccessToken validates an access token
func (s *authService) ValidateAccessToken(_ context.Context, token string) (string, error) {
	return s.tokens.VerifyAccessToken(token)
}
