package impl

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/domain/service"
	"passport/internal/infra/auth"
	"passport/internal/usecase"

	"github.com/stretchr/testify/require"
)

// testFixture wires the use case layer against in-memory fakes with real
// hashing and token services.
type testFixture struct {
	cfg         *config.Config
	accountRepo *fakeAccountRepo
	tokenRepo   *fakeRefreshTokenRepo
	txManager   *fakeTxManager
	hasher      service.PasswordHasher
	tokenSvc    service.TokenService
	refreshSvc  usecase.RefreshTokenService
	reconciler  usecase.IdentityReconciler
	authSvc     usecase.AuthUsecase
	accountSvc  usecase.AccountUsecase
}

func baseTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		Secret:     "test_secret_key_very_long_for_testing",
		Issuer:     "passport",
		Audience:   "passport-clients",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	cfg.Auth = &config.AuthConfig{
		BcryptCost:   4,
		StoreTimeout: 5 * time.Second,
	}
	cfg.OAuth = &config.OAuthConfig{PlaceholderAge: 18}
	cfg.PasswordStrength = &config.PasswordStrengthConfig{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	}

	return cfg
}

func newTestFixture(t *testing.T, mutate func(*config.Config)) *testFixture {
	t.Helper()

	cfg := baseTestConfig()
	if mutate != nil {
		mutate(cfg)
	}

	accountRepo := newFakeAccountRepo()
	tokenRepo := newFakeRefreshTokenRepo()
	txManager := &fakeTxManager{accountRepo: accountRepo, tokenRepo: tokenRepo}
	logger := slog.Default()

	hasher := auth.NewBcryptHasher(cfg)
	tokenSvc, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	refreshSvc := NewRefreshTokenService(RefreshTokenServiceParams{
		TxManager:    txManager,
		TokenRepo:    tokenRepo,
		TokenService: tokenSvc,
		Config:       cfg,
		Logger:       logger,
	})
	reconciler := NewReconcilerService(ReconcilerServiceParams{
		TxManager: txManager,
		Hasher:    hasher,
		Config:    cfg,
		Logger:    logger,
	})
	authSvc := NewAuthService(AuthServiceParams{
		TxManager:    txManager,
		AccountRepo:  accountRepo,
		Hasher:       hasher,
		TokenService: tokenSvc,
		RefreshSvc:   refreshSvc,
		Reconciler:   reconciler,
		OAuthServices: []service.OAuthAuthService{
			&fakeOAuthService{
				provider: "google",
				identity: &entity.OAuthIdentity{
					Provider: "google",
					Email:    "oauth@example.com",
					Name:     "OAuth User",
				},
			},
		},
		Config: cfg,
		Logger: logger,
	})
	accountSvc := NewAccountService(AccountServiceParams{
		TxManager:   txManager,
		AccountRepo: accountRepo,
		RefreshSvc:  refreshSvc,
		Config:      cfg,
		Logger:      logger,
	})

	return &testFixture{
		cfg:         cfg,
		accountRepo: accountRepo,
		tokenRepo:   tokenRepo,
		txManager:   txManager,
		hasher:      hasher,
		tokenSvc:    tokenSvc,
		refreshSvc:  refreshSvc,
		reconciler:  reconciler,
		authSvc:     authSvc,
		accountSvc:  accountSvc,
	}
}

// register creates an account through the public flow and returns the session.
func (f *testFixture) register(t *testing.T, email string) *usecase.SessionOutput {
	t.Helper()

	out, err := f.authSvc.Register(context.Background(), &usecase.RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "Sup3r$ecret",
		Age:      30,
	})
	require.NoError(t, err)

	return out
}
