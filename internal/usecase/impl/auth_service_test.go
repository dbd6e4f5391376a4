package impl

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"passport/config"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	f := newTestFixture(t, nil)

	out := f.register(t, "alice@example.com")
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, int64(900), out.ExpiresIn)
	assert.Equal(t, int64(7*24*3600), out.RefreshExpiresIn)
	require.NotNil(t, out.Account)
	assert.Equal(t, "alice@example.com", out.Account.Email)

	// The stored credential is a hash, not the password.
	account, err := f.accountRepo.FindActiveAccountByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r$ecret", account.CredentialHash)
	assert.True(t, f.hasher.Check("Sup3r$ecret", account.CredentialHash))

	// The access token is immediately usable.
	claims, err := f.tokenSvc.ValidateToken(out.AccessToken, service.ValidateOptions{})
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.Subject)
}

func TestAuthService_RegisterWeakPassword(t *testing.T) {
	f := newTestFixture(t, nil)

	out, err := f.authSvc.Register(context.Background(), &usecase.RegisterInput{
		Name:     "Weak",
		Email:    "weak@example.com",
		Password: "short",
		Age:      30,
	})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestAuthService_RegisterUnderage(t *testing.T) {
	f := newTestFixture(t, nil)

	out, err := f.authSvc.Register(context.Background(), &usecase.RegisterInput{
		Name:     "Minor",
		Email:    "minor@example.com",
		Password: "Sup3r$ecret",
		Age:      17,
	})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domainerrors.ErrBusinessRule)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	f := newTestFixture(t, nil)
	f.register(t, "alice@example.com")

	out, err := f.authSvc.Register(context.Background(), &usecase.RegisterInput{
		Name:     "Impostor",
		Email:    "Alice@Example.com", // case variants collide
		Password: "An0ther$ecret",
		Age:      25,
	})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domainerrors.ErrEmailConflict)
}

func TestAuthService_Login(t *testing.T) {
	f := newTestFixture(t, nil)
	f.register(t, "alice@example.com")

	out, err := f.authSvc.Login(context.Background(), &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "Sup3r$ecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, "alice@example.com", out.Account.Email)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newTestFixture(t, nil)
	f.register(t, "alice@example.com")

	_, wrongPassword := f.authSvc.Login(context.Background(), &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "WrongPassword1$",
	})
	_, unknownEmail := f.authSvc.Login(context.Background(), &usecase.LoginInput{
		Email:    "nobody@example.com",
		Password: "WrongPassword1$",
	})

	// Both must collapse to the same error so callers cannot probe for
	// registered emails.
	assert.ErrorIs(t, wrongPassword, domainerrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_LoginDeactivatedAccount(t *testing.T) {
	f := newTestFixture(t, nil)
	out := f.register(t, "alice@example.com")

	require.NoError(t, f.accountSvc.DeactivateAccount(context.Background(), out.Account.ID))

	_, err := f.authSvc.Login(context.Background(), &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "Sup3r$ecret",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Refresh(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	refreshed, err := f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, session.Account.ID, refreshed.Account.ID)

	// The consumed refresh token is single-use.
	_, err = f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
}

func TestAuthService_RefreshWithExpiredAccessToken(t *testing.T) {
	f := newTestFixture(t, func(cfg *config.Config) {
		cfg.JWT.AccessTTL = time.Nanosecond
	})
	session := f.register(t, "alice@example.com")

	time.Sleep(time.Millisecond)

	// The expired access token still identifies the session for refresh.
	_, err := f.tokenSvc.ValidateToken(session.AccessToken, service.ValidateOptions{})
	require.ErrorIs(t, err, service.ErrTokenExpired)

	refreshed, err := f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestAuthService_RefreshWithTamperedAccessToken(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	_, err := f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  session.AccessToken + "tampered",
		RefreshToken: session.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrAccessTokenInvalid)
}

func TestAuthService_RefreshRotationTimeout(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	// A store deadline that has already passed makes the rotation time out
	// before it reaches the transaction.
	timedOutCfg := baseTestConfig()
	timedOutCfg.Auth.StoreTimeout = -time.Second
	stuckRefresh := NewRefreshTokenService(RefreshTokenServiceParams{
		TxManager:    f.txManager,
		TokenRepo:    f.tokenRepo,
		TokenService: f.tokenSvc,
		Config:       timedOutCfg,
		Logger:       slog.Default(),
	})
	authSvc := NewAuthService(AuthServiceParams{
		TxManager:    f.txManager,
		AccountRepo:  f.accountRepo,
		Hasher:       f.hasher,
		TokenService: f.tokenSvc,
		RefreshSvc:   stuckRefresh,
		Reconciler:   f.reconciler,
		Config:       f.cfg,
		Logger:       slog.Default(),
	})

	_, err := authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	// Unknown outcome: the presented token was not consumed, so a later
	// attempt (with a working store) can still succeed.
	valid, err := f.refreshSvc.IsValid(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestAuthService_RefreshForeignToken(t *testing.T) {
	f := newTestFixture(t, nil)
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	// Alice's access token with Bob's refresh token must not refresh.
	_, err := f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  alice.AccessToken,
		RefreshToken: bob.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
}

func TestAuthService_Logout(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	require.NoError(t, f.authSvc.Logout(context.Background(), session.RefreshToken))
	require.NoError(t, f.authSvc.Logout(context.Background(), session.RefreshToken))

	_, err := f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
}

func TestAuthService_LogoutAll(t *testing.T) {
	f := newTestFixture(t, nil)
	first := f.register(t, "alice@example.com")
	second, err := f.authSvc.Login(context.Background(), &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "Sup3r$ecret",
	})
	require.NoError(t, err)

	require.NoError(t, f.authSvc.LogoutAll(context.Background(), first.AccessToken))

	for _, session := range []*usecase.SessionOutput{first, second} {
		_, err := f.authSvc.Refresh(context.Background(), &usecase.RefreshInput{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
		})
		assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	projection, err := f.authSvc.CurrentUser(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, projection.ID)
	assert.Equal(t, "alice@example.com", projection.Email)

	_, err = f.authSvc.CurrentUser(context.Background(), "garbage")
	assert.ErrorIs(t, err, domainerrors.ErrAccessTokenInvalid)
}

func TestAuthService_CurrentUserExpiredToken(t *testing.T) {
	f := newTestFixture(t, func(cfg *config.Config) {
		cfg.JWT.AccessTTL = time.Nanosecond
	})
	session := f.register(t, "alice@example.com")

	time.Sleep(time.Millisecond)

	_, err := f.authSvc.CurrentUser(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrAccessTokenInvalid)
}

func TestAuthService_CurrentUserDeactivatedAccount(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	require.NoError(t, f.accountSvc.DeactivateAccount(context.Background(), session.Account.ID))

	_, err := f.authSvc.CurrentUser(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_OAuthLogin(t *testing.T) {
	f := newTestFixture(t, nil)

	out, err := f.authSvc.OAuthLogin(context.Background(), &usecase.OAuthLoginInput{
		Provider: "google",
		IDToken:  "good-token",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, "oauth@example.com", out.Account.Email)
	assert.Equal(t, 18, out.Account.Age, "provisioned accounts get the placeholder age")

	// A second callback reuses the provisioned account.
	again, err := f.authSvc.OAuthLogin(context.Background(), &usecase.OAuthLoginInput{
		Provider: "google",
		IDToken:  "good-token",
	})
	require.NoError(t, err)
	assert.Equal(t, out.Account.ID, again.Account.ID)
}

func TestAuthService_OAuthLoginRejectedToken(t *testing.T) {
	f := newTestFixture(t, nil)

	out, err := f.authSvc.OAuthLogin(context.Background(), &usecase.OAuthLoginInput{
		Provider: "google",
		IDToken:  "bad",
	})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_OAuthLoginUnknownProvider(t *testing.T) {
	f := newTestFixture(t, nil)

	out, err := f.authSvc.OAuthLogin(context.Background(), &usecase.OAuthLoginInput{
		Provider: "unconfigured",
		IDToken:  "good-token",
	})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestAuthService_OAuthProviders(t *testing.T) {
	f := newTestFixture(t, nil)

	assert.Equal(t, []string{"google"}, f.authSvc.OAuthProviders())
}
