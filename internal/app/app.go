package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/social-auth/internal/config"
	"github.com/prperemyshlev/social-auth/internal/handler"
	"github.com/prperemyshlev/social-auth/internal/identity"
	"github.com/prperemyshlev/social-auth/internal/repository"
	"github.com/prperemyshlev/social-auth/internal/service"
	"github.com/prperemyshlev/social-auth/internal/utils"
	"github.com/prperemyshlev/social-auth/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	jwksHTTPTimeout = 10 * time.Second
)

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	sweeper *service.SessionSweeper
}

// NewApp wires the services and routes. ctx bounds the background JWKS
// refreshers and should live as long as the application.
func NewApp(ctx context.Context, infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	verifiers, err := newVerifiers(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	metrics, err := service.NewMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	authService := service.NewAuthService(repos, jwtManager, verifiers, metrics, logger)
	rateLimiter := service.NewRateLimiter(infra.Redis())
	sweeper := service.NewSessionSweeper(repos.Sessions, metrics, logger, cfg.Session.CleanupInterval.Duration)
	healthChecker := NewHealthChecker(infra)

	authHandler := handler.NewAuthHandler(authService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, logger, authHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		sweeper: sweeper,
	}, nil
}

// newVerifiers builds the Google verifier and, when configured, the Apple one
func newVerifiers(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]identity.Verifier, error) {
	httpClient := &http.Client{Timeout: jwksHTTPTimeout}

	googleKeys, err := identity.NewKeySet(ctx, httpClient, cfg.Google.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google key set: %w", err)
	}

	verifiers := []identity.Verifier{
		identity.NewGoogleVerifier(identity.GoogleConfig{
			ClientID: cfg.Google.ClientID,
			Issuers:  cfg.Google.Issuers,
		}, googleKeys),
	}

	if !cfg.Apple.Enabled() {
		logger.Info("Sign in with Apple is not configured")
		return verifiers, nil
	}

	appleKeys, err := identity.NewKeySet(ctx, httpClient, cfg.Apple.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Apple key set: %w", err)
	}

	appleVerifier, err := identity.NewAppleVerifier(identity.AppleConfig{
		TeamID:          cfg.Apple.TeamID,
		KeyID:           cfg.Apple.KeyID,
		ClientID:        cfg.Apple.ClientID,
		PrivateKeyPEM:   cfg.Apple.PrivateKeyPEM(),
		TokenURL:        cfg.Apple.TokenURL,
		Issuer:          cfg.Apple.Issuer,
		ExchangeTimeout: cfg.Apple.ExchangeTimeout.Duration,
	}, nil, appleKeys)
	if err != nil {
		return nil, err
	}

	return append(verifiers, appleVerifier), nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	authHandler *handler.AuthHandler,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	loginLimit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.AuthRateLimitRequests,
		cfg.Security.AuthRateLimitWindow.Duration,
		handler.IPBasedKey("login"),
		logger,
	)
	requireAuth := handler.AuthMiddleware(authService)

	api := router.Group("/api/v1")
	api.Use(handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey("api"),
		logger,
	))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/google", loginLimit, authHandler.GoogleLogin)
			auth.POST("/apple", loginLimit, authHandler.AppleLogin)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
			auth.DELETE("/account", requireAuth, authHandler.DeleteAccount)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go a.sweeper.Run(ctx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// Shutdown drains in-flight requests before releasing the connections they use
func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)
	infraErr := a.infra.Shutdown(ctx)

	if err := errors.Join(serverErr, infraErr); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
