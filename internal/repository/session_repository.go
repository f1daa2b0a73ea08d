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

const sessionColumns = `id, account_id, refresh_token, device_label, expires_at, created_at`

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db  *database.Postgres
	now func() time.Time
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.Postgres) SessionRepository {
	return &sessionRepository{db: db, now: time.Now}
}

// Create stores a new session for the account
func (r *sessionRepository) Create(ctx context.Context, accountID, refreshToken, deviceLabel string, expiresAt time.Time) (*domain.Session, error) {
	query := `
		INSERT INTO sessions (id, account_id, refresh_token, device_label, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.DB.QueryRowContext(ctx, query,
		uuid.New().String(),
		accountID,
		refreshToken,
		deviceLabel,
		expiresAt,
		r.now(),
	))
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, fmt.Errorf("failed to create session: %w", dup)
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// FindValidByToken retrieves an unexpired session by refresh token
func (r *sessionRepository) FindValidByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = $1 AND expires_at > $2`

	session, err := scanSession(r.db.DB.QueryRowContext(ctx, query, refreshToken, r.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// Rotate replaces the refresh token and expiry in place, keeping id and created_at
func (r *sessionRepository) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*domain.Session, error) {
	query := `
		UPDATE sessions
		SET refresh_token = $1, expires_at = $2
		WHERE refresh_token = $3 AND expires_at > $4
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.DB.QueryRowContext(ctx, query, newToken, expiresAt, oldToken, r.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session already rotated or revoked: %w", ErrNotFound)
		}
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, fmt.Errorf("failed to rotate session: %w", dup)
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return session, nil
}

// DeleteByToken deletes the session holding refreshToken, if any
func (r *sessionRepository) DeleteByToken(ctx context.Context, refreshToken string) error {
	query := `DELETE FROM sessions WHERE refresh_token = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, refreshToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteAllForAccount deletes every session of the account
func (r *sessionRepository) DeleteAllForAccount(ctx context.Context, accountID string) error {
	query := `DELETE FROM sessions WHERE account_id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to delete sessions for account: %w", err)
	}

	return nil
}

// DeleteExpired deletes all expired sessions
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= $1`

	result, err := r.db.DB.ExecContext(ctx, query, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	session := &domain.Session{}

	err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.RefreshToken,
		&session.DeviceLabel,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}
