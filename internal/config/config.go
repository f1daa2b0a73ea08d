package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Google   GoogleConfig   `env:",prefix=GOOGLE_"`
	Apple    AppleConfig    `env:",prefix=APPLE_"`
	Session  SessionConfig  `env:",prefix=SESSION_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=auth_service"`
	Password string `env:"PASSWORD,default=auth_service_password"`
	DBName   string `env:"DB,default=auth_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// JWTConfig holds the two signing secrets. Access and refresh tokens must be
// signed with different secrets so that one leaked secret cannot mint the other class.
type JWTConfig struct {
	AccessSecret       string   `env:"ACCESS_SECRET,required"`
	RefreshSecret      string   `env:"REFRESH_SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

type GoogleConfig struct {
	ClientID string   `env:"CLIENT_ID,required"`
	JWKSURL  string   `env:"JWKS_URL,default=https://www.googleapis.com/oauth2/v3/certs"`
	Issuers  []string `env:"ISSUERS,default=accounts.google.com,https://accounts.google.com"`
}

type AppleConfig struct {
	TeamID          string   `env:"TEAM_ID"`
	KeyID           string   `env:"KEY_ID"`
	PrivateKey      string   `env:"PRIVATE_KEY"`
	ClientID        string   `env:"IOS_CLIENT_ID"`
	TokenURL        string   `env:"TOKEN_URL,default=https://appleid.apple.com/auth/token"`
	JWKSURL         string   `env:"JWKS_URL,default=https://appleid.apple.com/auth/keys"`
	Issuer          string   `env:"ISSUER,default=https://appleid.apple.com"`
	ExchangeTimeout Duration `env:"EXCHANGE_TIMEOUT,default=10s"`
}

type SessionConfig struct {
	// CleanupInterval of zero disables the background sweep of expired sessions
	CleanupInterval Duration `env:"CLEANUP_INTERVAL,default=1h"`
}

type SecurityConfig struct {
	RateLimitRequests     int      `env:"RATE_LIMIT_REQUESTS,default=100"`
	RateLimitWindow       Duration `env:"RATE_LIMIT_WINDOW,default=15m"`
	AuthRateLimitRequests int      `env:"AUTH_RATE_LIMIT_REQUESTS,default=10"`
	AuthRateLimitWindow   Duration `env:"AUTH_RATE_LIMIT_WINDOW,default=1h"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Enabled reports whether Apple sign-in is fully configured
func (a AppleConfig) Enabled() bool {
	return a.TeamID != "" && a.KeyID != "" && a.PrivateKey != "" && a.ClientID != ""
}

// PrivateKeyPEM returns the private key with literal "\n" sequences expanded,
// so the PEM block can be passed as a single-line environment variable
func (a AppleConfig) PrivateKeyPEM() []byte {
	return []byte(strings.ReplaceAll(a.PrivateKey, `\n`, "\n"))
}

func (a AppleConfig) partial() bool {
	set := 0
	for _, v := range []string{a.TeamID, a.KeyID, a.PrivateKey, a.ClientID} {
		if v != "" {
			set++
		}
	}
	return set > 0 && set < 4
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field constraints that struct tags cannot express
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.AccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters long", minSecretLength))
	}
	if len(c.JWT.RefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters long", minSecretLength))
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Apple.partial() {
		errs = append(errs, errors.New("APPLE_TEAM_ID, APPLE_KEY_ID, APPLE_PRIVATE_KEY and APPLE_IOS_CLIENT_ID must be set together"))
	}
	if c.Session.CleanupInterval.Duration < 0 {
		errs = append(errs, errors.New("SESSION_CLEANUP_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}
