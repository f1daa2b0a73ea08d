package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/dto"
	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	title  string
}

// errorMappings is matched in order; the first hit wins
var errorMappings = []errorMapping{
	{domain.ErrFirstLoginEmailRequired, http.StatusBadRequest, "Bad request"},
	{domain.ErrInvalidAssertion, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrInvalidRefreshToken, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrTokenExpired, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrInvalidSignature, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrProviderDisabled, http.StatusNotFound, "Not found"},
	{domain.ErrProviderExchangeFailed, http.StatusBadGateway, "Bad gateway"},
}

// respondError maps service errors onto HTTP responses. Clients only see the
// sentinel message, plus the provider's reason for failed code exchanges;
// unexpected failures are logged and reported as 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}

		message := m.target.Error()
		var exchangeErr *domain.ProviderExchangeError
		if errors.As(err, &exchangeErr) {
			message = exchangeErr.Error()
		}

		c.JSON(m.status, dto.ErrorResponse{
			Error:   m.title,
			Message: message,
		})
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "Internal server error",
		Message: "An unexpected error occurred",
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Message: err.Error(),
	})
}
