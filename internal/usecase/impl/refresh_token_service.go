// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
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

// refreshTokenService implements the RefreshTokenService interface.
type refreshTokenService struct {
	txManager     repository.TransactionManager
	tokenRepo     repository.RefreshTokenRepository
	tokenService  service.TokenService
	storeTimeout  time.Duration
	cascadeRevoke bool
	logger        *slog.Logger
	now           func() time.Time
}

// RefreshTokenServiceParams holds dependencies for the refresh token service, injected by Fx.
type RefreshTokenServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	TokenRepo    repository.RefreshTokenRepository
	TokenService service.TokenService
	Config       *config.Config
	Logger       *slog.Logger
}

// NewRefreshTokenService is the constructor for refreshTokenService.
func NewRefreshTokenService(params RefreshTokenServiceParams) usecase.RefreshTokenService {
	return &refreshTokenService{
		txManager:     params.TxManager,
		tokenRepo:     params.TokenRepo,
		tokenService:  params.TokenService,
		storeTimeout:  params.Config.Auth.StoreTimeout,
		cascadeRevoke: params.Config.CascadeOnReuse(),
		logger:        params.Logger,
		now:           time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *refreshTokenService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// storeCtx bounds store access so a stuck database cannot hold a request open.
func (srv *refreshTokenService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, srv.storeTimeout)
}

// Issue mints a new refresh token for an account and persists its hash.
func (srv *refreshTokenService) Issue(ctx context.Context, accountID uuid.UUID) (*usecase.IssuedRefreshToken, error) {
	rawValue, err := srv.tokenService.NewRefreshTokenValue()
	if err != nil {
		return nil, errors.Wrap(err, "failed to mint refresh token value")
	}

	token := &entity.RefreshToken{
		ID:        uuid.New(),
		AccountID: accountID,
		TokenHash: srv.tokenService.HashTokenValue(rawValue),
		ExpiresAt: srv.now().Add(srv.tokenService.RefreshTokenDuration()),
	}

	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	if err := srv.tokenRepo.CreateRefreshToken(storeCtx, token); err != nil {
		return nil, errors.Wrap(err, "failed to persist refresh token")
	}

	return &usecase.IssuedRefreshToken{
		ID:        token.ID,
		Value:     rawValue,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// errRefreshTokenReused aborts the rotation transaction when a replayed token
// is detected. The transaction rolls back on it, so the cascade response runs
// afterwards on its own committed writes.
var errRefreshTokenReused = errors.New("refresh token reused")

// Rotate atomically exchanges a live refresh token for its successor.
func (srv *refreshTokenService) Rotate(ctx context.Context, rawValue string, accountID uuid.UUID) (*usecase.IssuedRefreshToken, error) {
	tokenHash := srv.tokenService.HashTokenValue(rawValue)

	newRaw, err := srv.tokenService.NewRefreshTokenValue()
	if err != nil {
		return nil, errors.Wrap(err, "failed to mint successor token value")
	}
	successorID := uuid.New()

	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	var issued *usecase.IssuedRefreshToken
	var reused *entity.RefreshToken
	err = srv.txManager.Execute(storeCtx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.NewRefreshTokenRepository()

		current, err := tokenRepo.FindRefreshTokenByHash(storeCtx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "unknown refresh token")
			}

			return errors.Wrap(err, "failed to load refresh token")
		}

		// A token presented with the wrong identity is as suspect as an
		// unknown one; the response must not reveal that the value exists.
		if current.AccountID != accountID {
			return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token account mismatch")
		}

		if current.Revoked {
			reused = current

			return errRefreshTokenReused
		}

		if !srv.now().Before(current.ExpiresAt) {
			return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token expired")
		}

		// Claim the token before inserting its successor. The claim is a
		// compare-and-swap on the revoked flag, so a concurrent rotation of
		// the same value fails here and never creates an orphan row.
		if err := tokenRepo.RevokeAndLink(storeCtx, tokenHash, successorID); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenRotated) {
				reused = current

				return errRefreshTokenReused
			}

			return errors.Wrap(err, "failed to claim refresh token for rotation")
		}

		successor := &entity.RefreshToken{
			ID:        successorID,
			AccountID: current.AccountID,
			TokenHash: srv.tokenService.HashTokenValue(newRaw),
			ExpiresAt: srv.now().Add(srv.tokenService.RefreshTokenDuration()),
		}
		if err := tokenRepo.CreateRefreshToken(storeCtx, successor); err != nil {
			return errors.Wrap(err, "failed to persist successor token")
		}

		issued = &usecase.IssuedRefreshToken{
			ID:        successor.ID,
			Value:     newRaw,
			ExpiresAt: successor.ExpiresAt,
		}

		return nil
	})
	if err != nil {
		// The reuse response must outlive the rolled-back transaction, so it
		// runs here against the non-transactional repository.
		if errors.Is(err, errRefreshTokenReused) && reused != nil {
			return nil, srv.handleReuse(ctx, reused)
		}

		return nil, err
	}

	return issued, nil
}

// handleReuse reacts to a replayed, already-rotated token. The replay means
// the raw value exists in two places, one of which is not the legitimate
// client, so when configured the entire account's sessions are revoked. The
// revocations commit independently of the failed rotation.
func (srv *refreshTokenService) handleReuse(ctx context.Context, token *entity.RefreshToken) error {
	srv.log(ctx).Warn("Refresh token reuse detected",
		slog.Any("accountID", token.AccountID),
		slog.Any("tokenID", token.ID),
		slog.Bool("cascadeRevoke", srv.cascadeRevoke))

	if srv.cascadeRevoke {
		storeCtx, cancel := srv.storeCtx(ctx)
		defer cancel()

		if err := srv.tokenRepo.RevokeRefreshTokensByAccountID(storeCtx, token.AccountID); err != nil {
			return errors.Wrap(err, "failed to revoke token chain after reuse")
		}
	}

	return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token already used")
}

// IsValid reports whether a raw token value is known, unrevoked, and unexpired.
func (srv *refreshTokenService) IsValid(ctx context.Context, rawValue string) (bool, error) {
	tokenHash := srv.tokenService.HashTokenValue(rawValue)

	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	token, err := srv.tokenRepo.FindRefreshTokenByHash(storeCtx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "failed to load refresh token")
	}

	return !token.Revoked && srv.now().Before(token.ExpiresAt), nil
}

// Revoke marks the presented token revoked. Unknown or already revoked tokens
// are ignored so logout is idempotent.
func (srv *refreshTokenService) Revoke(ctx context.Context, rawValue string) error {
	tokenHash := srv.tokenService.HashTokenValue(rawValue)

	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	token, err := srv.tokenRepo.FindRefreshTokenByHash(storeCtx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to load refresh token for revocation")
	}
	if token.Revoked {
		return nil
	}

	if err := srv.tokenRepo.RevokeRefreshToken(storeCtx, token.ID); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to revoke refresh token")
	}

	return nil
}

// RevokeAll revokes every live token of an account.
func (srv *refreshTokenService) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	if err := srv.tokenRepo.RevokeRefreshTokensByAccountID(storeCtx, accountID); err != nil {
		return errors.Wrap(err, "failed to revoke account sessions")
	}

	return nil
}

// ActiveSessionCount reports how many live tokens an account holds.
func (srv *refreshTokenService) ActiveSessionCount(ctx context.Context, accountID uuid.UUID) (int, error) {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	count, err := srv.tokenRepo.CountActiveSessionsByAccountID(storeCtx, accountID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count active sessions")
	}

	return count, nil
}

// CleanupExpired deletes token records past their expiry.
func (srv *refreshTokenService) CleanupExpired(ctx context.Context) (int64, error) {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	removed, err := srv.tokenRepo.DeleteExpiredRefreshTokens(storeCtx, srv.now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired refresh tokens")
	}
	if removed > 0 {
		srv.log(ctx).Info("Expired refresh tokens removed", slog.Int64("count", removed))
	}

	return removed, nil
}
