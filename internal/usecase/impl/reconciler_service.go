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

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// reconcilerService implements the IdentityReconciler interface.
type reconcilerService struct {
	txManager      repository.TransactionManager
	hasher         service.PasswordHasher
	placeholderAge int
	storeTimeout   time.Duration
	logger         *slog.Logger
}

// ReconcilerServiceParams holds dependencies for the identity reconciler, injected by Fx.
type ReconcilerServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Hasher    service.PasswordHasher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewReconcilerService is the constructor for reconcilerService.
func NewReconcilerService(params ReconcilerServiceParams) usecase.IdentityReconciler {
	return &reconcilerService{
		txManager:      params.TxManager,
		hasher:         params.Hasher,
		placeholderAge: params.Config.OAuth.PlaceholderAge,
		storeTimeout:   params.Config.Auth.StoreTimeout,
		logger:         params.Logger,
	}
}

func (srv *reconcilerService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// FindOrCreate maps a provider-verified identity to a local account.
//
// The lookup and the create run in one transaction so two concurrent callbacks
// for the same new email cannot both provision an account; the loser hits the
// unique email constraint and re-reads the winner's row.
func (srv *reconcilerService) FindOrCreate(ctx context.Context, identity *entity.OAuthIdentity) (*entity.Account, error) {
	if identity == nil || identity.Email == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "oauth identity carries no email")
	}

	storeCtx, cancel := context.WithTimeout(ctx, srv.storeTimeout)
	defer cancel()

	var account *entity.Account
	err := srv.txManager.Execute(storeCtx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		existing, err := accountRepo.FindActiveAccountByEmail(storeCtx, identity.Email)
		if err == nil {
			account = existing

			return nil
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(err, "failed to look up account by email")
		}

		created, err := srv.provisionAccount(storeCtx, accountRepo, identity)
		if err != nil {
			return err
		}
		account = created

		return nil
	})
	if err != nil {
		// Lost a provisioning race: the other callback's account is now there.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return srv.findAfterRace(ctx, identity.Email)
		}

		return nil, err
	}

	return account, nil
}

func (srv *reconcilerService) provisionAccount(ctx context.Context, accountRepo repository.AccountRepository, identity *entity.OAuthIdentity) (*entity.Account, error) {
	randomCredential, err := srv.hasher.RandomCredential()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate placeholder credential")
	}
	credentialHash, err := srv.hasher.Hash(randomCredential)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash placeholder credential")
	}

	name := identity.Name
	if name == "" {
		name = identity.Email
	}

	account := &entity.Account{
		Email:          identity.Email,
		Name:           name,
		Age:            srv.placeholderAge,
		CredentialHash: credentialHash,
		Active:         true,
	}
	if err := accountRepo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, err
		}

		return nil, errors.Wrapf(domainerrors.ErrAccountCreationFailed, "create provisioned account: %v", err)
	}

	srv.log(ctx).Info("Provisioned account from external identity",
		slog.String("provider", identity.Provider),
		slog.Any("accountID", account.ID))

	return account, nil
}

func (srv *reconcilerService) findAfterRace(ctx context.Context, email string) (*entity.Account, error) {
	storeCtx, cancel := context.WithTimeout(ctx, srv.storeTimeout)
	defer cancel()

	var account *entity.Account
	err := srv.txManager.Execute(storeCtx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.NewAccountRepository().FindActiveAccountByEmail(storeCtx, email)
		if err != nil {
			return errors.Wrap(err, "failed to re-read account after provisioning race")
		}
		account = found

		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}
