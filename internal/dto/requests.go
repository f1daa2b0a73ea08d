package dto

import "github.com/prperemyshlev/social-auth/internal/domain"

// GoogleLoginRequest represents a Google sign-in request
type GoogleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// FullName is the name Apple hands to the client on first authorization
type FullName struct {
	GivenName  string `json:"givenName" binding:"max=255"`
	FamilyName string `json:"familyName" binding:"max=255"`
}

// AppleLoginRequest represents a Sign in with Apple request
type AppleLoginRequest struct {
	AuthorizationCode string    `json:"authorizationCode" binding:"required"`
	FullName          *FullName `json:"fullName"`
}

// DomainFullName converts the optional name into its domain form
func (r AppleLoginRequest) DomainFullName() *domain.FullName {
	if r.FullName == nil {
		return nil
	}
	return &domain.FullName{
		GivenName:  r.FullName.GivenName,
		FamilyName: r.FullName.FamilyName,
	}
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest represents a logout request; the token is optional
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}
