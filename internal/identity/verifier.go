// Package identity verifies third-party sign-in assertions and normalizes
// them into provider-agnostic identities.
package identity

import (
	"context"

	"github.com/prperemyshlev/social-auth/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_verifier.go -package=mocks -source=verifier.go

// Assertion is the caller-supplied proof of identity. Each provider reads
// only the fields it understands.
type Assertion struct {
	// IDToken is a provider-signed identity token (Google)
	IDToken string
	// AuthorizationCode is exchanged at the provider token endpoint (Apple)
	AuthorizationCode string
	// FullName is supplied out-of-band by Apple clients on first authorization
	FullName *domain.FullName
}

// Verifier validates an assertion against a provider's trust root
type Verifier interface {
	Provider() domain.Provider
	Verify(ctx context.Context, assertion Assertion) (*domain.Identity, error)
}
