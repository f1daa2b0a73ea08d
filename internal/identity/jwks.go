package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// jwksRefreshInterval bounds how often a lookup may force a JWKS fetch
const jwksRefreshInterval = time.Minute

var errRefreshThrottled = errors.New("JWKS refresh throttled")

// KeySet resolves provider signing keys from a remote JWKS document.
// Keys are cached and refreshed in the background. A lookup forces a
// synchronous refresh when the first fetch has not succeeded yet or the
// key id is unknown, at most once per jwksRefreshInterval.
type KeySet struct {
	url   string
	cache *jwk.Cache

	minRefreshInterval time.Duration
	now                func() time.Time

	mu          sync.Mutex
	lastRefresh time.Time
}

// NewKeySet creates a key set backed by url. The first fetch runs in the
// background, so an unreachable provider does not block startup. The
// background refresher stops when ctx is cancelled.
func NewKeySet(ctx context.Context, httpClient *http.Client, url string) (*KeySet, error) {
	if url == "" {
		return nil, fmt.Errorf("missing JWKS URL")
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(httpClient)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}

	if err := cache.Register(ctx, url, jwk.WithWaitReady(false)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}

	return &KeySet{
		url:                url,
		cache:              cache,
		minRefreshInterval: jwksRefreshInterval,
		now:                time.Now,
	}, nil
}

// allowRefresh records a forced refresh unless one ran within minRefreshInterval
func (k *KeySet) allowRefresh() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if !k.lastRefresh.IsZero() && now.Sub(k.lastRefresh) < k.minRefreshInterval {
		return false
	}
	k.lastRefresh = now
	return true
}

func (k *KeySet) refresh(ctx context.Context) (jwk.Set, error) {
	if !k.allowRefresh() {
		return nil, errRefreshThrottled
	}
	return k.cache.Refresh(ctx, k.url)
}

func (k *KeySet) lookup(ctx context.Context, kid string) (jwk.Key, error) {
	set, err := k.cache.Lookup(ctx, k.url)
	if err != nil {
		// no successful fetch yet
		set, err = k.refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("JWKS unavailable: %w", err)
		}
	}

	if key, found := set.LookupKeyID(kid); found {
		return key, nil
	}

	set, err = k.refresh(ctx)
	if errors.Is(err, errRefreshThrottled) {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
	}

	key, found := set.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}
	return key, nil
}

// Keyfunc returns a jwt.Keyfunc that resolves RSA keys by the token's kid header
func (k *KeySet) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token header missing kid")
		}

		key, err := k.lookup(ctx, kid)
		if err != nil {
			return nil, err
		}

		var rawKey interface{}
		if err := jwk.Export(key, &rawKey); err != nil {
			return nil, fmt.Errorf("failed to export raw key: %w", err)
		}
		return rawKey, nil
	}
}
