package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/identity"
	"github.com/prperemyshlev/social-auth/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/mock/gomock"
)

func TestLogin_Google(t *testing.T) {
	f := newFixture(t)

	result := f.loginGoogle(t, "T1", googleIdentity("User@Example.com ", "g-1", "Test User"))

	require.NotNil(t, result.Account)
	assert.Equal(t, "user@example.com", result.Account.Email)
	require.NotNil(t, result.Account.GoogleSubject)
	assert.Equal(t, "g-1", *result.Account.GoogleSubject)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	accountID, err := f.tokens.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, accountID)

	assert.Equal(t, 1, f.store.sessionCount())
	session, err := f.store.FindValidByToken(context.Background(), hashToken(result.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, "test-device", session.DeviceLabel)
	assert.WithinDuration(t, f.clock.now().Add(testRefreshTTL), session.ExpiresAt, time.Minute)

	_, err = f.store.FindValidByToken(context.Background(), result.RefreshToken)
	assert.Error(t, err, "raw refresh token must not be stored")

	assert.Equal(t, int64(1), counterValue(t, f.reader, "auth.logins",
		attribute.String("provider", "google"), attribute.String("outcome", "success")))
}

func TestLogin_GoogleReloginUpdatesProfile(t *testing.T) {
	f := newFixture(t)

	first := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Old Name"))
	second := f.loginGoogle(t, "T2", googleIdentity("user@example.com", "g-1", "New Name"))

	assert.Equal(t, first.Account.ID, second.Account.ID)
	require.NotNil(t, second.Account.DisplayName)
	assert.Equal(t, "New Name", *second.Account.DisplayName)
	assert.Equal(t, 1, f.store.accountCount())
	assert.Equal(t, 2, f.store.sessionCount())
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestLogin_VerifierFailureLeavesNoState(t *testing.T) {
	f := newFixture(t)

	f.google.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrInvalidAssertion)

	result, err := f.svc.Login(context.Background(), domain.ProviderGoogle, identity.Assertion{IDToken: "bad"}, "test-device")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidAssertion)
	assert.Equal(t, 0, f.store.accountCount())
	assert.Equal(t, 0, f.store.sessionCount())

	assert.Equal(t, int64(1), counterValue(t, f.reader, "auth.logins",
		attribute.String("provider", "google"), attribute.String("outcome", "failure")))
}

func TestLogin_ProviderExchangeFailurePassesThrough(t *testing.T) {
	f := newFixture(t)

	exchangeErr := &domain.ProviderExchangeError{Provider: domain.ProviderApple, StatusCode: 400, Reason: "invalid_grant"}
	f.apple.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, exchangeErr)

	_, err := f.svc.Login(context.Background(), domain.ProviderApple, identity.Assertion{AuthorizationCode: "code"}, "ios")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderExchangeFailed)

	var target *domain.ProviderExchangeError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "invalid_grant", target.Reason)
}

func TestLogin_GoogleWithoutUsableEmail(t *testing.T) {
	f := newFixture(t)

	f.google.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(googleIdentity("not-an-email", "g-1", "Name"), nil)

	_, err := f.svc.Login(context.Background(), domain.ProviderGoogle, identity.Assertion{IDToken: "T1"}, "test-device")
	assert.ErrorIs(t, err, domain.ErrInvalidAssertion)
	assert.Equal(t, 0, f.store.accountCount())
}

func TestLogin_ProviderDisabled(t *testing.T) {
	f := newFixture(t, domain.ProviderGoogle)

	_, err := f.svc.Login(context.Background(), domain.ProviderApple, identity.Assertion{AuthorizationCode: "code"}, "ios")
	assert.ErrorIs(t, err, domain.ErrProviderDisabled)
}

func TestLogin_SessionFailureReturnsError(t *testing.T) {
	f := newFixture(t)
	f.store.failSessions = errors.New("connection reset")

	f.google.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(googleIdentity("user@example.com", "g-1", "Name"), nil)

	result, err := f.svc.Login(context.Background(), domain.ProviderGoogle, identity.Assertion{IDToken: "T1"}, "test-device")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestLogin_AppleFirstLoginRequiresEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assertion := identity.Assertion{AuthorizationCode: "code"}

	f.apple.EXPECT().Verify(gomock.Any(), assertion).Return(appleIdentity("a-1", nil), nil)
	_, err := f.svc.Login(ctx, domain.ProviderApple, assertion, "ios")
	assert.ErrorIs(t, err, domain.ErrFirstLoginEmailRequired)
	assert.Equal(t, 0, f.store.accountCount())
	assert.Equal(t, 0, f.store.sessionCount())

	f.apple.EXPECT().Verify(gomock.Any(), assertion).Return(appleIdentity("a-1", ptr("jane@example.com")), nil)
	first, err := f.svc.Login(ctx, domain.ProviderApple, assertion, "ios")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", first.Account.Email)

	f.apple.EXPECT().Verify(gomock.Any(), assertion).Return(appleIdentity("a-1", nil), nil)
	again, err := f.svc.Login(ctx, domain.ProviderApple, assertion, "ios")
	require.NoError(t, err)
	assert.Equal(t, first.Account.ID, again.Account.ID)
	assert.Equal(t, "jane@example.com", again.Account.Email)
}

func TestLogin_AppleLinksExistingGoogleAccount(t *testing.T) {
	f := newFixture(t)

	google := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Google Name"))

	f.apple.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(appleIdentity("a-1", ptr("user@example.com")), nil)

	apple, err := f.svc.Login(context.Background(), domain.ProviderApple, identity.Assertion{AuthorizationCode: "code"}, "ios")
	require.NoError(t, err)

	assert.Equal(t, google.Account.ID, apple.Account.ID)
	require.NotNil(t, apple.Account.AppleSubject)
	assert.Equal(t, "a-1", *apple.Account.AppleSubject)
	require.NotNil(t, apple.Account.GoogleSubject)
	assert.Equal(t, "g-1", *apple.Account.GoogleSubject)
	require.NotNil(t, apple.Account.DisplayName)
	assert.Equal(t, "Google Name", *apple.Account.DisplayName)
	assert.Equal(t, 1, f.store.accountCount())
}

func TestRefresh_RotatesBothTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))
	before, err := f.store.FindValidByToken(ctx, hashToken(login.RefreshToken))
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	assert.Equal(t, login.Account.ID, refreshed.Account.ID)

	after, err := f.store.FindValidByToken(ctx, hashToken(refreshed.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, 1, f.store.sessionCount())

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, refreshed.RefreshToken)
	assert.NoError(t, err)

	assert.Equal(t, int64(2), counterValue(t, f.reader, "auth.refreshes", attribute.String("outcome", "success")))
	assert.Equal(t, int64(1), counterValue(t, f.reader, "auth.refreshes", attribute.String("outcome", "failure")))
}

func TestRefresh_ConcurrentRefreshSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)

	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Refresh(context.Background(), login.RefreshToken)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInvalidRefreshToken):
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, rejected)
	assert.Equal(t, 1, f.store.sessionCount())
}

func TestRefresh_AfterLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))
	require.NoError(t, f.svc.Logout(ctx, login.RefreshToken))

	_, err := f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestRefresh_AfterDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))
	require.NoError(t, f.svc.DeleteAccount(ctx, login.Account.ID))

	_, err := f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredSession(t *testing.T) {
	f := newFixture(t)

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))
	f.clock.advance(testRefreshTTL + time.Second)

	_, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestRefresh_RejectsAccessTokenAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))

	_, err := f.svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestRefresh_BadSignatureDeletesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.store.UpsertGoogle(ctx, "user@example.com", ptr("g-1"), nil, nil)
	require.NoError(t, err)

	forger := utils.NewJWTManager(
		"forged-access-secret-that-is-at-least-32-chars",
		"forged-refresh-secret-that-is-at-least-32-chars",
		time.Minute, time.Hour,
	)
	forged, err := forger.GenerateRefreshToken(account.ID)
	require.NoError(t, err)

	_, err = f.store.Create(ctx, account.ID, hashToken(forged), "test", f.clock.now().Add(time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
	assert.Equal(t, 0, f.store.sessionCount())
}

func TestRefresh_TokenForAnotherAccountDeletesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner, err := f.store.UpsertGoogle(ctx, "owner@example.com", ptr("g-1"), nil, nil)
	require.NoError(t, err)

	other, err := f.tokens.GenerateRefreshToken("someone-else")
	require.NoError(t, err)

	_, err = f.store.Create(ctx, owner.ID, hashToken(other), "test", f.clock.now().Add(time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, other)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
	assert.Equal(t, 0, f.store.sessionCount())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))

	require.NoError(t, f.svc.Logout(ctx, login.RefreshToken))
	assert.Equal(t, 0, f.store.sessionCount())

	assert.NoError(t, f.svc.Logout(ctx, login.RefreshToken))
	assert.NoError(t, f.svc.Logout(ctx, ""))
	assert.NoError(t, f.svc.Logout(ctx, "never-issued"))

	f.store.failSessions = errors.New("connection reset")
	assert.Error(t, f.svc.Logout(ctx, "any-token"))
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))

	account, err := f.svc.GetAccount(ctx, login.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", account.Email)

	require.NoError(t, f.svc.DeleteAccount(ctx, login.Account.ID))

	_, err = f.svc.GetAccount(ctx, login.Account.ID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))
	f.loginGoogle(t, "T2", googleIdentity("user@example.com", "g-1", "Name"))
	require.Equal(t, 2, f.store.sessionCount())

	require.NoError(t, f.svc.DeleteAccount(ctx, login.Account.ID))
	assert.Equal(t, 0, f.store.sessionCount())
	assert.Equal(t, 0, f.store.accountCount())

	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, login.Account.ID), domain.ErrAccountNotFound)
}

func TestValidateAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login := f.loginGoogle(t, "T1", googleIdentity("user@example.com", "g-1", "Name"))

	accountID, err := f.svc.ValidateAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.Account.ID, accountID)

	_, err = f.svc.ValidateAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}
