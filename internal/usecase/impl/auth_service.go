package impl

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// minRegistrationAge is the business rule floor for self-registration.
const minRegistrationAge = 18

// authService implements the AuthUsecase interface. It composes credential
// verification, JWT issuance, refresh token rotation, and identity
// reconciliation into the session lifecycle operations.
type authService struct {
	txManager    repository.TransactionManager
	accountRepo  repository.AccountRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	refreshSvc   usecase.RefreshTokenService
	reconciler   usecase.IdentityReconciler
	oauthSvcs    map[string]service.OAuthAuthService
	storeTimeout time.Duration
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for the session orchestrator, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager     repository.TransactionManager
	AccountRepo   repository.AccountRepository
	Hasher        service.PasswordHasher
	TokenService  service.TokenService
	RefreshSvc    usecase.RefreshTokenService
	Reconciler    usecase.IdentityReconciler
	OAuthServices []service.OAuthAuthService `group:"oauth_services"`
	Config        *config.Config
	Logger        *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	oauthSvcs := make(map[string]service.OAuthAuthService, len(params.OAuthServices))
	for _, svc := range params.OAuthServices {
		if svc == nil {
			// Unconfigured providers inject nil; they simply aren't offered.
			continue
		}
		oauthSvcs[svc.Provider()] = svc
	}

	return &authService{
		txManager:    params.TxManager,
		accountRepo:  params.AccountRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		refreshSvc:   params.RefreshSvc,
		reconciler:   params.Reconciler,
		oauthSvcs:    oauthSvcs,
		storeTimeout: params.Config.Auth.StoreTimeout,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *authService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, srv.storeTimeout)
}

// Register creates a new account and opens its first session.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.SessionOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	if err := srv.hasher.ValidateStrength(input.Password); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(err.Error()).WrapMessage("password does not meet requirements")
	}
	if input.Age < minRegistrationAge {
		return nil, errors.Wrap(domainerrors.ErrBusinessRule, "account holder must be at least 18")
	}

	credentialHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	account := &entity.Account{
		Email:          input.Email,
		Name:           input.Name,
		Age:            input.Age,
		CredentialHash: credentialHash,
		Active:         true,
	}

	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	err = srv.txManager.Execute(storeCtx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewAccountRepository().CreateAccount(storeCtx, account); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return errors.Wrap(domainerrors.ErrEmailConflict, "email already registered")
			}

			return errors.Wrap(err, "failed to create account")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Account registered", slog.Any("accountID", account.ID))

	return srv.openSession(ctx, account)
}

// Login verifies a password credential and opens a session.
//
// A missing account and a wrong password produce the same error and, as far
// as practical, the same amount of work, so responses don't reveal which
// emails are registered.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.SessionOutput, error) {
	storeCtx, cancel := srv.storeCtx(ctx)

	account, err := srv.accountRepo.FindActiveAccountByEmail(storeCtx, input.Email)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Burn a hash comparison anyway to keep timing comparable.
			srv.hasher.Check(input.Password, phantomCredentialHash)

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "no active account for email")
		}

		return nil, errors.Wrap(err, "failed to look up account for login")
	}

	if !srv.hasher.Check(input.Password, account.CredentialHash) {
		srv.log(ctx).Warn("Password mismatch on login", slog.Any("accountID", account.ID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "password mismatch")
	}

	return srv.openSession(ctx, account)
}

// Refresh exchanges a live refresh token for a fresh credential pair.
// The access token may be expired; its signature still has to verify.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.SessionOutput, error) {
	claims, err := srv.tokenService.ValidateToken(input.AccessToken, service.ValidateOptions{IgnoreExpiry: true})
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token rejected during refresh")
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token carries no account identity")
	}

	account, err := srv.loadActiveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	issued, err := srv.refreshSvc.Rotate(ctx, input.RefreshToken, account.ID)
	if err != nil {
		// A timed-out rotation has an unknown outcome; the caller must not
		// retry blindly, so it gets the same terminal class as a bad token.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "refresh token rotation timed out")
		}

		return nil, err
	}

	accessToken, err := srv.tokenService.IssueAccessToken(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token on refresh")
	}

	srv.log(ctx).Debug("Session refreshed", slog.Any("accountID", account.ID))

	return &usecase.SessionOutput{
		AccessToken:      accessToken,
		RefreshToken:     issued.Value,
		ExpiresIn:        int64(srv.tokenService.AccessTokenDuration().Seconds()),
		RefreshExpiresIn: int64(srv.tokenService.RefreshTokenDuration().Seconds()),
		Account:          account.Projection(),
	}, nil
}

// Logout revokes the presented refresh token.
func (srv *authService) Logout(ctx context.Context, refreshToken string) error {
	return srv.refreshSvc.Revoke(ctx, refreshToken)
}

// LogoutAll revokes every live session of the authenticated account.
func (srv *authService) LogoutAll(ctx context.Context, accessToken string) error {
	claims, err := srv.tokenService.ValidateToken(accessToken, service.ValidateOptions{})
	if err != nil {
		return errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token rejected")
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token carries no account identity")
	}

	if err := srv.refreshSvc.RevokeAll(ctx, accountID); err != nil {
		return err
	}

	srv.log(ctx).Info("All sessions revoked", slog.Any("accountID", accountID))

	return nil
}

// CurrentUser resolves a live access token to the account it represents.
func (srv *authService) CurrentUser(ctx context.Context, accessToken string) (*entity.AccountProjection, error) {
	claims, err := srv.tokenService.ValidateToken(accessToken, service.ValidateOptions{})
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return nil, errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token expired")
		}

		return nil, errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token rejected")
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrAccessTokenInvalid, "access token carries no account identity")
	}

	account, err := srv.loadActiveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return account.Projection(), nil
}

// OAuthLogin verifies a provider ID token and opens a session for the
// reconciled local account.
func (srv *authService) OAuthLogin(ctx context.Context, input *usecase.OAuthLoginInput) (*usecase.SessionOutput, error) {
	verifier, ok := srv.oauthSvcs[input.Provider]
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrValidationFailed, "unsupported oauth provider %q", input.Provider)
	}

	identity, err := verifier.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		srv.log(ctx).Warn("OAuth token verification failed",
			slog.String("provider", input.Provider), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "oauth token rejected")
	}

	account, err := srv.reconciler.FindOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	return srv.openSession(ctx, account)
}

// OAuthProviders lists the configured external identity providers.
func (srv *authService) OAuthProviders() []string {
	providers := make([]string, 0, len(srv.oauthSvcs))
	for name := range srv.oauthSvcs {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	return providers
}

// openSession issues the credential pair shared by every successful
// authentication path.
func (srv *authService) openSession(ctx context.Context, account *entity.Account) (*usecase.SessionOutput, error) {
	accessToken, err := srv.tokenService.IssueAccessToken(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	issued, err := srv.refreshSvc.Issue(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &usecase.SessionOutput{
		AccessToken:      accessToken,
		RefreshToken:     issued.Value,
		ExpiresIn:        int64(srv.tokenService.AccessTokenDuration().Seconds()),
		RefreshExpiresIn: int64(srv.tokenService.RefreshTokenDuration().Seconds()),
		Account:          account.Projection(),
	}, nil
}

func (srv *authService) loadActiveAccount(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	account, err := srv.accountRepo.FindAccountByID(storeCtx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "account no longer exists")
		}

		return nil, errors.Wrap(err, "failed to load account")
	}
	if !account.Active {
		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "account is deactivated")
	}

	return account, nil
}

// phantomCredentialHash is a valid bcrypt hash of an unknowable value, used to
// equalize login timing when the email has no account.
const phantomCredentialHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
