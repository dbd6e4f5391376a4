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
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const defaultListPageSize = 50

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager    repository.TransactionManager
	accountRepo  repository.AccountRepository
	refreshSvc   usecase.RefreshTokenService
	storeTimeout time.Duration
	logger       *slog.Logger
}

// AccountServiceParams holds dependencies for the account service, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	RefreshSvc  usecase.RefreshTokenService
	Config      *config.Config
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:    params.TxManager,
		accountRepo:  params.AccountRepo,
		refreshSvc:   params.RefreshSvc,
		storeTimeout: params.Config.Auth.StoreTimeout,
		logger:       params.Logger,
	}
}

func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *accountService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, srv.storeTimeout)
}

// GetAccount returns the projection of an account by ID.
func (srv *accountService) GetAccount(ctx context.Context, id uuid.UUID) (*entity.AccountProjection, error) {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	account, err := srv.accountRepo.FindAccountByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "account lookup failed")
		}

		return nil, errors.Wrap(err, "failed to load account")
	}

	return account.Projection(), nil
}

// UpdateAccount applies the given changes to an account.
func (srv *accountService) UpdateAccount(ctx context.Context, id uuid.UUID, input *usecase.UpdateAccountInput) (*entity.AccountProjection, error) {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	var updated *entity.Account
	err := srv.txManager.Execute(storeCtx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindAccountByID(storeCtx, id)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return errors.Wrap(domainerrors.ErrAccountNotFound, "account lookup failed")
			}

			return errors.Wrap(err, "failed to load account for update")
		}

		if input.Name != nil {
			if *input.Name == "" {
				return errors.Wrap(domainerrors.ErrValidationFailed, "name cannot be empty")
			}
			account.Name = *input.Name
		}
		if input.Age != nil {
			if *input.Age < minRegistrationAge {
				return errors.Wrap(domainerrors.ErrBusinessRule, "account holder must be at least 18")
			}
			account.Age = *input.Age
		}

		if err := accountRepo.UpdateAccount(storeCtx, account); err != nil {
			return errors.Wrap(err, "failed to update account")
		}
		updated = account

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Account updated", slog.Any("accountID", id))

	return updated.Projection(), nil
}

// DeactivateAccount soft-deletes an account and revokes all of its sessions.
func (srv *accountService) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	err := srv.txManager.Execute(storeCtx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewAccountRepository().DeactivateAccount(storeCtx, id); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return errors.Wrap(domainerrors.ErrAccountNotFound, "account lookup failed")
			}

			return errors.Wrap(err, "failed to deactivate account")
		}

		// A deactivated account must not keep usable sessions.
		if err := repoFactory.NewRefreshTokenRepository().RevokeRefreshTokensByAccountID(storeCtx, id); err != nil {
			return errors.Wrap(err, "failed to revoke sessions on deactivation")
		}

		return nil
	})
	if err != nil {
		return err
	}

	srv.log(ctx).Info("Account deactivated", slog.Any("accountID", id))

	return nil
}

// ListAccounts returns a page of account projections.
func (srv *accountService) ListAccounts(ctx context.Context, limit, offset int) ([]*entity.AccountProjection, error) {
	if limit <= 0 {
		limit = defaultListPageSize
	}
	if offset < 0 {
		offset = 0
	}

	storeCtx, cancel := srv.storeCtx(ctx)
	defer cancel()

	accounts, err := srv.accountRepo.ListAccounts(storeCtx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	projections := make([]*entity.AccountProjection, 0, len(accounts))
	for _, account := range accounts {
		projections = append(projections, account.Projection())
	}

	return projections, nil
}

// ActiveSessionCount reports how many live sessions an account holds.
func (srv *accountService) ActiveSessionCount(ctx context.Context, id uuid.UUID) (int, error) {
	return srv.refreshSvc.ActiveSessionCount(ctx, id)
}

// CleanupExpiredTokens deletes refresh token records past their expiry.
func (srv *accountService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return srv.refreshSvc.CleanupExpired(ctx)
}
