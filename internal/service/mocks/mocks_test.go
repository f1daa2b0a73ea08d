package mocks_test

import (
	"github.com/prperemyshlev/social-auth/internal/service"
	"github.com/prperemyshlev/social-auth/internal/service/mocks"
)

var (
	_ service.AuthService = (*mocks.MockAuthService)(nil)
	_ service.TokenCodec  = (*mocks.MockTokenCodec)(nil)
)
