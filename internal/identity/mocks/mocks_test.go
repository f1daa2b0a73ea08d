package mocks_test

import (
	"github.com/prperemyshlev/social-auth/internal/identity"
	"github.com/prperemyshlev/social-auth/internal/identity/mocks"
)

var _ identity.Verifier = (*mocks.MockVerifier)(nil)
