package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/social-auth/internal/domain"
)

// AccountRepository persists accounts keyed by email and provider subjects
type AccountRepository interface {
	// UpsertGoogle inserts an account or, on an email match, overwrites the
	// profile and links the Google subject when one is given
	UpsertGoogle(ctx context.Context, email string, subject, name, avatarURL *string) (*domain.Account, error)
	// UpsertApple inserts an account or, on an email match, links the Apple
	// subject and keeps the existing name unless a new one is given
	UpsertApple(ctx context.Context, email string, subject, name *string) (*domain.Account, error)
	GetByAppleSubject(ctx context.Context, subject string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// UpdateAppleProfile patches email and name, keeping current values for nil arguments
	UpdateAppleProfile(ctx context.Context, id string, email, name *string) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// SessionRepository persists refresh-token grants
type SessionRepository interface {
	Create(ctx context.Context, accountID, refreshToken, deviceLabel string, expiresAt time.Time) (*domain.Session, error)
	// FindValidByToken returns ErrNotFound for unknown and expired tokens alike
	FindValidByToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	// Rotate swaps the token and expiry of the session holding oldToken in a
	// single conditional update. ErrNotFound means the token was already
	// rotated or deleted.
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*domain.Session, error)
	// DeleteByToken is idempotent
	DeleteByToken(ctx context.Context, refreshToken string) error
	DeleteAllForAccount(ctx context.Context, accountID string) error
	// DeleteExpired removes sessions past their expiry and returns how many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}
