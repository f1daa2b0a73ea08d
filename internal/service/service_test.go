package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/identity"
	"github.com/prperemyshlev/social-auth/internal/identity/mocks"
	"github.com/prperemyshlev/social-auth/internal/utils"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	testAccessSecret  = "test-access-secret-that-is-at-least-32-characters"
	testRefreshSecret = "test-refresh-secret-that-is-at-least-32-characters"
	testRefreshTTL    = 7 * 24 * time.Hour
)

// testClock is wall time shifted by an adjustable offset
type testClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

type fixture struct {
	clock  *testClock
	store  *memStore
	tokens *utils.JWTManager
	google *mocks.MockVerifier
	apple  *mocks.MockVerifier
	svc    *authService
	reader *sdkmetric.ManualReader
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewMetrics(provider.Meter("social-auth-test"))
	require.NoError(t, err)
	return metrics, reader
}

func newFixture(t *testing.T, providers ...domain.Provider) *fixture {
	t.Helper()

	if len(providers) == 0 {
		providers = []domain.Provider{domain.ProviderGoogle, domain.ProviderApple}
	}

	ctrl := gomock.NewController(t)
	clock := &testClock{}
	store := newMemStore(clock.now)
	tokens := utils.NewJWTManager(testAccessSecret, testRefreshSecret, 15*time.Minute, testRefreshTTL)
	metrics, reader := newTestMetrics(t)

	f := &fixture{clock: clock, store: store, tokens: tokens, reader: reader}

	var verifiers []identity.Verifier
	for _, p := range providers {
		v := mocks.NewMockVerifier(ctrl)
		v.EXPECT().Provider().Return(p).AnyTimes()
		verifiers = append(verifiers, v)

		switch p {
		case domain.ProviderGoogle:
			f.google = v
		case domain.ProviderApple:
			f.apple = v
		}
	}

	f.svc = NewAuthService(store.repositories(), tokens, verifiers, metrics, zap.NewNop()).(*authService)
	f.svc.now = clock.now

	return f
}

func ptr(v string) *string {
	return &v
}

func googleIdentity(email, subject, name string) *domain.Identity {
	return &domain.Identity{
		Provider: domain.ProviderGoogle,
		Subject:  subject,
		Email:    ptr(email),
		Name:     ptr(name),
	}
}

func appleIdentity(subject string, email *string) *domain.Identity {
	return &domain.Identity{
		Provider: domain.ProviderApple,
		Subject:  subject,
		Email:    email,
	}
}

// loginGoogle performs a Google login that the mocked verifier accepts
func (f *fixture) loginGoogle(t *testing.T, idToken string, id *domain.Identity) *domain.AuthResult {
	t.Helper()

	f.google.EXPECT().
		Verify(gomock.Any(), identity.Assertion{IDToken: idToken}).
		Return(id, nil)

	result, err := f.svc.Login(context.Background(), domain.ProviderGoogle, identity.Assertion{IDToken: idToken}, "test-device")
	require.NoError(t, err)
	return result
}

// counterValue sums the data points of a counter whose attributes include attrs
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

		points:
			for _, dp := range sum.DataPoints {
				for _, kv := range attrs {
					v, found := dp.Attributes.Value(kv.Key)
					if !found || v.Emit() != kv.Value.Emit() {
						continue points
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}
