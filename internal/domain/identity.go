package domain

import "strings"

// Provider names a federated identity provider
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Identity is a provider-agnostic identity claim produced by a verifier
type Identity struct {
	Provider  Provider
	Subject   string
	Email     *string
	Name      *string
	AvatarURL *string
}

// FullName is the out-of-band name Apple hands to the client on first authorization
type FullName struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

// Format joins the non-empty name parts with a space.
// It returns nil when neither part is present.
func (n *FullName) Format() *string {
	if n == nil {
		return nil
	}

	parts := make([]string, 0, 2)
	for _, p := range []string{n.GivenName, n.FamilyName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	name := strings.Join(parts, " ")
	return &name
}
