package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/repository"
	"github.com/prperemyshlev/social-auth/internal/utils"
	"go.uber.org/zap"
)

// AccountResolver maps verified identities onto local accounts. Email is the
// join key across providers.
type AccountResolver struct {
	accounts repository.AccountRepository
	logger   *zap.Logger
}

// NewAccountResolver creates a new account resolver
func NewAccountResolver(accounts repository.AccountRepository, logger *zap.Logger) *AccountResolver {
	return &AccountResolver{accounts: accounts, logger: logger}
}

// Resolve dispatches on the identity's provider
func (r *AccountResolver) Resolve(ctx context.Context, id *domain.Identity) (*domain.Account, error) {
	switch id.Provider {
	case domain.ProviderGoogle:
		email := utils.NormalizeEmail(id.Email)
		if email == nil {
			return nil, fmt.Errorf("%w: google identity without a valid email", domain.ErrInvalidAssertion)
		}
		return r.ResolveGoogle(ctx, *email, id.Subject, id.Name, id.AvatarURL)
	case domain.ProviderApple:
		return r.ResolveApple(ctx, id.Subject, utils.NormalizeEmail(id.Email), id.Name)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderDisabled, id.Provider)
	}
}

// ResolveGoogle upserts by email. Name and avatar always take the incoming
// values; the Google subject is linked but never cleared.
func (r *AccountResolver) ResolveGoogle(ctx context.Context, email, subject string, name, avatarURL *string) (*domain.Account, error) {
	account, err := r.accounts.UpsertGoogle(ctx, email, optionalSubject(subject), name, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve google account: %w", err)
	}
	return account, nil
}

// ResolveApple finds the account by Apple subject first, since Apple may hide
// the email on later logins. A first login needs an email to create or link an account.
func (r *AccountResolver) ResolveApple(ctx context.Context, subject string, email, name *string) (*domain.Account, error) {
	account, err := r.accounts.GetByAppleSubject(ctx, subject)
	switch {
	case err == nil:
		return r.patchAppleProfile(ctx, account, email, name)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to look up apple account: %w", err)
	}

	if email == nil {
		return nil, domain.ErrFirstLoginEmailRequired
	}

	account, err = r.accounts.UpsertApple(ctx, *email, optionalSubject(subject), name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve apple account: %w", err)
	}
	return account, nil
}

func (r *AccountResolver) patchAppleProfile(ctx context.Context, account *domain.Account, email, name *string) (*domain.Account, error) {
	if email == nil && name == nil {
		return account, nil
	}

	updated, err := r.accounts.UpdateAppleProfile(ctx, account.ID, email, name)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// the new relay address already belongs to another account; keep ours
		r.logger.Warn("apple email already linked to another account",
			zap.String("account_id", account.ID),
		)
		updated, err = r.accounts.UpdateAppleProfile(ctx, account.ID, nil, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update apple profile: %w", err)
	}
	return updated, nil
}

func optionalSubject(subject string) *string {
	if subject == "" {
		return nil
	}
	return &subject
}
