package identity

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/social-auth/internal/domain"
)

// GoogleConfig configures Google ID token verification
type GoogleConfig struct {
	ClientID string
	Issuers  []string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleVerifier validates Google ID tokens against Google's published keys
type GoogleVerifier struct {
	clientID string
	issuers  []string
	keys     *KeySet
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier that expects tokens issued for cfg.ClientID
func NewGoogleVerifier(cfg GoogleConfig, keys *KeySet) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: cfg.ClientID,
		issuers:  cfg.Issuers,
		keys:     keys,
	}
}

func (v *GoogleVerifier) Provider() domain.Provider {
	return domain.ProviderGoogle
}

// Verify checks signature, audience, issuer and expiry of the ID token and
// requires a verified email
func (v *GoogleVerifier) Verify(ctx context.Context, assertion Assertion) (*domain.Identity, error) {
	if assertion.IDToken == "" {
		return nil, fmt.Errorf("%w: missing id token", domain.ErrInvalidAssertion)
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(assertion.IDToken, claims, v.keys.Keyfunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAssertion, err)
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrInvalidAssertion, claims.Issuer)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidAssertion)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", domain.ErrInvalidAssertion)
	}

	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%w: email is not verified", domain.ErrInvalidAssertion)
	}

	return &domain.Identity{
		Provider:  domain.ProviderGoogle,
		Subject:   claims.Subject,
		Email:     &claims.Email,
		Name:      optional(claims.Name),
		AvatarURL: optional(claims.Picture),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
