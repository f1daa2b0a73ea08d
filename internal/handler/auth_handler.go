package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/dto"
	"github.com/prperemyshlev/social-auth/internal/identity"
	"github.com/prperemyshlev/social-auth/internal/service"
	"go.uber.org/zap"
)

const unknownDevice = "Unknown"

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// GoogleLogin handles Google sign-in
// @Summary Sign in with Google
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.GoogleLoginRequest true "Google ID token"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := bindStrictJSON(c, &req); err != nil {
		respondValidationError(c, err)
		return
	}

	h.login(c, domain.ProviderGoogle, identity.Assertion{IDToken: req.IDToken})
}

// AppleLogin handles Sign in with Apple
// @Summary Sign in with Apple
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.AppleLoginRequest true "Apple authorization code"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /auth/apple [post]
func (h *AuthHandler) AppleLogin(c *gin.Context) {
	var req dto.AppleLoginRequest
	if err := bindStrictJSON(c, &req); err != nil {
		respondValidationError(c, err)
		return
	}

	h.login(c, domain.ProviderApple, identity.Assertion{
		AuthorizationCode: req.AuthorizationCode,
		FullName:          req.DomainFullName(),
	})
}

func (h *AuthHandler) login(c *gin.Context, provider domain.Provider, assertion identity.Assertion) {
	deviceLabel := c.Request.UserAgent()
	if deviceLabel == "" {
		deviceLabel = unknownDevice
	}

	result, err := h.authService.Login(c.Request.Context(), provider, assertion, deviceLabel)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthResponse(result))
}

// Refresh handles token refresh
// @Summary Refresh tokens
// @Description Rotates the refresh token and issues a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Refresh token"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := bindStrictJSON(c, &req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthResponse(result))
}

// Logout handles logout
// @Summary Logout
// @Description Revokes the session of the given refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LogoutRequest false "Refresh token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := bindStrictJSON(c, &req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// GetMe handles getting the current account
// @Summary Get current account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	accountID, ok := AccountID(c)
	if !ok {
		respondMissingIdentity(c)
		return
	}

	account, err := h.authService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAccountResponse(account))
}

// DeleteAccount handles account deletion
// @Summary Delete current account
// @Description Deletes the account and all of its sessions
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/account [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	accountID, ok := AccountID(c)
	if !ok {
		respondMissingIdentity(c)
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), accountID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Account deleted successfully",
	})
}
