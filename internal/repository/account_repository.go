package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/pkg/database"
)

const accountColumns = `id, email, google_subject, apple_subject, display_name, avatar_url, created_at, updated_at`

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db  *database.Postgres
	now func() time.Time
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.Postgres) AccountRepository {
	return &accountRepository{db: db, now: time.Now}
}

// UpsertGoogle creates the account or refreshes its Google profile.
// Name and avatar are overwritten since Google always sends current values.
func (r *accountRepository) UpsertGoogle(ctx context.Context, email string, subject, name, avatarURL *string) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (id, email, google_subject, display_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (email) DO UPDATE SET
			google_subject = COALESCE(EXCLUDED.google_subject, accounts.google_subject),
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + accountColumns

	row := r.db.DB.QueryRowContext(ctx, query,
		uuid.New().String(),
		email,
		subject,
		name,
		avatarURL,
		r.now(),
	)

	account, err := scanAccount(row)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, fmt.Errorf("failed to upsert google account %s: %w", email, dup)
		}
		return nil, fmt.Errorf("failed to upsert google account: %w", err)
	}

	return account, nil
}

// UpsertApple creates the account or links the Apple subject to the account
// owning email. An existing name is only replaced by a non-nil one.
func (r *accountRepository) UpsertApple(ctx context.Context, email string, subject, name *string) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (id, email, apple_subject, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (email) DO UPDATE SET
			apple_subject = COALESCE(EXCLUDED.apple_subject, accounts.apple_subject),
			display_name = COALESCE(EXCLUDED.display_name, accounts.display_name),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + accountColumns

	row := r.db.DB.QueryRowContext(ctx, query,
		uuid.New().String(),
		email,
		subject,
		name,
		r.now(),
	)

	account, err := scanAccount(row)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, fmt.Errorf("failed to upsert apple account %s: %w", email, dup)
		}
		return nil, fmt.Errorf("failed to upsert apple account: %w", err)
	}

	return account, nil
}

// GetByAppleSubject retrieves an account by its Apple subject
func (r *accountRepository) GetByAppleSubject(ctx context.Context, subject string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE apple_subject = $1`

	account, err := scanAccount(r.db.DB.QueryRowContext(ctx, query, subject))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with apple subject not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by apple subject: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// UpdateAppleProfile patches the email and name of an account found by Apple subject
func (r *accountRepository) UpdateAppleProfile(ctx context.Context, id string, email, name *string) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET email = COALESCE($2, email),
			display_name = COALESCE($3, display_name),
			updated_at = $4
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.db.DB.QueryRowContext(ctx, query, id, email, name, r.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with id %s not found: %w", id, ErrNotFound)
		}
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, fmt.Errorf("failed to update account %s: %w", id, dup)
		}
		return nil, fmt.Errorf("failed to update apple profile: %w", err)
	}

	return account, nil
}

// Delete removes an account; its sessions go with it through the foreign key
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	var googleSubject, appleSubject, displayName, avatarURL sql.NullString

	err := row.Scan(
		&account.ID,
		&account.Email,
		&googleSubject,
		&appleSubject,
		&displayName,
		&avatarURL,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.GoogleSubject = nullableString(googleSubject)
	account.AppleSubject = nullableString(appleSubject)
	account.DisplayName = nullableString(displayName)
	account.AvatarURL = nullableString(avatarURL)

	return account, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
