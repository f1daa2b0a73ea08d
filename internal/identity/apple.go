package identity

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/social-auth/internal/domain"
)

const (
	// maxClientSecretTTL is the longest validity Apple accepts for a client secret
	maxClientSecretTTL = 180 * 24 * time.Hour

	defaultExchangeTimeout = 10 * time.Second

	// maxTokenResponseSize bounds how much of the token endpoint response is read
	maxTokenResponseSize = 1 << 20
)

// AppleConfig configures Sign in with Apple
type AppleConfig struct {
	TeamID   string
	KeyID    string
	ClientID string
	// PrivateKeyPEM is the PKCS#8 (or SEC1) ES256 key downloaded from the Apple developer portal
	PrivateKeyPEM []byte
	TokenURL      string
	Issuer        string
	// ClientSecretTTL is capped at 180 days
	ClientSecretTTL time.Duration
	// ExchangeTimeout bounds the authorization code exchange
	ExchangeTimeout time.Duration
}

type appleTokenResponse struct {
	IDToken          string `json:"id_token"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type appleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AppleVerifier exchanges an authorization code at Apple's token endpoint and
// validates the returned identity token against Apple's published keys
type AppleVerifier struct {
	cfg        AppleConfig
	signingKey *ecdsa.PrivateKey
	httpClient *http.Client
	keys       *KeySet
	now        func() time.Time
}

var _ Verifier = (*AppleVerifier)(nil)

// NewAppleVerifier parses the signing key up front so that a broken key fails at startup
func NewAppleVerifier(cfg AppleConfig, httpClient *http.Client, keys *KeySet) (*AppleVerifier, error) {
	signingKey, err := jwt.ParseECPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Apple private key: %w", err)
	}

	if cfg.ClientSecretTTL <= 0 || cfg.ClientSecretTTL > maxClientSecretTTL {
		cfg.ClientSecretTTL = maxClientSecretTTL
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = defaultExchangeTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.ExchangeTimeout}
	}

	return &AppleVerifier{
		cfg:        cfg,
		signingKey: signingKey,
		httpClient: httpClient,
		keys:       keys,
		now:        time.Now,
	}, nil
}

func (v *AppleVerifier) Provider() domain.Provider {
	return domain.ProviderApple
}

// ClientSecret builds the ES256 client assertion Apple requires in place of a static secret
func (v *AppleVerifier) ClientSecret() (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Issuer:    v.cfg.TeamID,
		Subject:   v.cfg.ClientID,
		Audience:  jwt.ClaimStrings{v.cfg.Issuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.cfg.ClientSecretTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = v.cfg.KeyID

	secret, err := token.SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign Apple client secret: %w", err)
	}
	return secret, nil
}

// Verify exchanges the authorization code and validates the resulting identity token.
// Email is optional since Apple only guarantees it on first authorization.
func (v *AppleVerifier) Verify(ctx context.Context, assertion Assertion) (*domain.Identity, error) {
	if assertion.AuthorizationCode == "" {
		return nil, fmt.Errorf("%w: missing authorization code", domain.ErrInvalidAssertion)
	}

	tokens, err := v.exchange(ctx, assertion.AuthorizationCode)
	if err != nil {
		return nil, err
	}

	if tokens.IDToken == "" {
		return nil, fmt.Errorf("%w: Apple token response carries no id_token", domain.ErrInvalidAssertion)
	}

	claims := &appleClaims{}
	_, err = jwt.ParseWithClaims(tokens.IDToken, claims, v.keys.Keyfunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.ClientID),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAssertion, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidAssertion)
	}

	return &domain.Identity{
		Provider: domain.ProviderApple,
		Subject:  claims.Subject,
		Email:    optional(claims.Email),
		Name:     assertion.FullName.Format(),
	}, nil
}

func (v *AppleVerifier) exchange(ctx context.Context, code string) (*appleTokenResponse, error) {
	clientSecret, err := v.ClientSecret()
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"client_id":     {v.cfg.ClientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.ExchangeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build Apple token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Apple token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read Apple token response: %w", err)
	}

	var tokens appleTokenResponse
	decodeErr := json.Unmarshal(body, &tokens)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := "Apple token exchange failed"
		if decodeErr == nil && tokens.Error != "" {
			reason = tokens.Error
		}
		return nil, &domain.ProviderExchangeError{
			Provider:   domain.ProviderApple,
			StatusCode: resp.StatusCode,
			Reason:     reason,
		}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: malformed Apple token response: %v", domain.ErrInvalidAssertion, decodeErr)
	}

	return &tokens, nil
}
