package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAssertion is returned when a provider identity assertion is malformed, unsigned,
	// expired, issued for another audience or lacks a required claim
	ErrInvalidAssertion = errors.New("invalid identity assertion")

	// ErrProviderExchangeFailed is returned when a provider token endpoint rejects a code exchange
	ErrProviderExchangeFailed = errors.New("provider token exchange failed")

	// ErrFirstLoginEmailRequired is returned when a first-time Apple login carries no email
	ErrFirstLoginEmailRequired = errors.New("email is required for first sign in")

	// ErrInvalidRefreshToken is returned when a refresh token is absent, expired, tampered or already rotated
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrTokenExpired is returned by the token codec for tokens past their expiry
	ErrTokenExpired = errors.New("token is expired")

	// ErrInvalidSignature is returned by the token codec for malformed or wrongly signed tokens
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrAccountNotFound is returned when the account no longer exists
	ErrAccountNotFound = errors.New("account not found")

	// ErrProviderDisabled is returned when a login is attempted against an unconfigured provider
	ErrProviderDisabled = errors.New("identity provider is not configured")
)

// ProviderExchangeError carries the error reported by a provider token endpoint
type ProviderExchangeError struct {
	Provider   Provider
	StatusCode int
	Reason     string
}

func (e *ProviderExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed (status %d): %s", e.Provider, e.StatusCode, e.Reason)
}

// Is lets errors.Is match ErrProviderExchangeFailed
func (e *ProviderExchangeError) Is(target error) bool {
	return target == ErrProviderExchangeFailed
}
