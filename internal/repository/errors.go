package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when an email is already attached to another account
	ErrDuplicateEmail = errors.New("account with this email already exists")

	// ErrDuplicateSubject is returned when a provider subject is already attached to another account
	ErrDuplicateSubject = errors.New("provider subject is already linked to another account")

	// ErrDuplicateToken is returned when a refresh token is already stored
	ErrDuplicateToken = errors.New("session with this refresh token already exists")
)

const uniqueViolation = "23505"

// mapUniqueViolation translates a PostgreSQL unique violation on one of the
// known constraints into the matching sentinel error
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case "accounts_email_key":
		return ErrDuplicateEmail
	case "accounts_google_subject_key", "accounts_apple_subject_key":
		return ErrDuplicateSubject
	case "sessions_refresh_token_key":
		return ErrDuplicateToken
	}
	return nil
}
