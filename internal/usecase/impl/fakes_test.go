package impl

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"passport/internal/domain/entity"
	"passport/internal/domain/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes. All operations are guarded by one mutex per
// fake so concurrent tests observe the same atomicity the SQL layer provides.

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entity.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*entity.Account)}
}

func (r *fakeAccountRepo) CreateAccount(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Active && strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	cloned := *account
	r.accounts[account.ID] = &cloned

	return nil
}

func (r *fakeAccountRepo) FindAccountByID(_ context.Context, id uuid.UUID) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cloned := *account

	return &cloned, nil
}

func (r *fakeAccountRepo) FindActiveAccountByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Active && strings.EqualFold(account.Email, strings.TrimSpace(email)) {
			cloned := *account

			return &cloned, nil
		}
	}

	return nil, repository.ErrAccountNotFound
}

func (r *fakeAccountRepo) UpdateAccount(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return repository.ErrAccountNotFound
	}
	cloned := *account
	cloned.UpdatedAt = time.Now()
	r.accounts[account.ID] = &cloned

	return nil
}

func (r *fakeAccountRepo) DeactivateAccount(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok || !account.Active {
		return repository.ErrAccountNotFound
	}
	account.Active = false

	return nil
}

func (r *fakeAccountRepo) snapshot() map[uuid.UUID]*entity.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make(map[uuid.UUID]*entity.Account, len(r.accounts))
	for id, account := range r.accounts {
		cloned := *account
		snap[id] = &cloned
	}

	return snap
}

func (r *fakeAccountRepo) restore(snap map[uuid.UUID]*entity.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = snap
}

func (r *fakeAccountRepo) ListAccounts(_ context.Context, limit, offset int) ([]*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*entity.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		cloned := *account
		all = append(all, &cloned)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))

	return all[offset:end], nil
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]*entity.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{byHash: make(map[string]*entity.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) CreateRefreshToken(_ context.Context, token *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[token.TokenHash]; exists {
		return errors.New("duplicate token hash")
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	cloned := *token
	r.byHash[token.TokenHash] = &cloned

	return nil
}

func (r *fakeRefreshTokenRepo) FindRefreshTokenByHash(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byHash[tokenHash]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	cloned := *token

	return &cloned, nil
}

func (r *fakeRefreshTokenRepo) FindRefreshTokenByID(_ context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.byHash {
		if token.ID == id {
			cloned := *token

			return &cloned, nil
		}
	}

	return nil, repository.ErrRefreshTokenNotFound
}

func (r *fakeRefreshTokenRepo) RevokeRefreshToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.byHash {
		if token.ID == id {
			token.Revoked = true

			return nil
		}
	}

	return repository.ErrRefreshTokenNotFound
}

func (r *fakeRefreshTokenRepo) RevokeAndLink(_ context.Context, tokenHash string, replacedBy uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byHash[tokenHash]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	if token.Revoked {
		return repository.ErrRefreshTokenRotated
	}
	token.Revoked = true
	token.ReplacedBy = &replacedBy

	return nil
}

func (r *fakeRefreshTokenRepo) RevokeRefreshTokensByAccountID(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.byHash {
		if token.AccountID == accountID {
			token.Revoked = true
		}
	}

	return nil
}

func (r *fakeRefreshTokenRepo) FindChainByAccountID(_ context.Context, accountID uuid.UUID) ([]*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chain []*entity.RefreshToken
	for _, token := range r.byHash {
		if token.AccountID == accountID {
			cloned := *token
			chain = append(chain, &cloned)
		}
	}

	return chain, nil
}

func (r *fakeRefreshTokenRepo) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, token := range r.byHash {
		if !token.ExpiresAt.After(before) {
			delete(r.byHash, hash)
			removed++
		}
	}

	return removed, nil
}

func (r *fakeRefreshTokenRepo) snapshot() map[string]*entity.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make(map[string]*entity.RefreshToken, len(r.byHash))
	for hash, token := range r.byHash {
		cloned := *token
		snap[hash] = &cloned
	}

	return snap
}

func (r *fakeRefreshTokenRepo) restore(snap map[string]*entity.RefreshToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byHash = snap
}

func (r *fakeRefreshTokenRepo) CountActiveSessionsByAccountID(_ context.Context, accountID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	now := time.Now()
	for _, token := range r.byHash {
		if token.AccountID == accountID && !token.Revoked && token.ExpiresAt.After(now) {
			count++
		}
	}

	return count, nil
}

// fakeTxManager runs the callback against the shared fakes with the same
// semantics as the GORM manager: a callback error rolls every write back.
// Transactions are serialized so a rollback can never erase a concurrent
// transaction's committed writes.
type fakeTxManager struct {
	mu          sync.Mutex
	accountRepo *fakeAccountRepo
	tokenRepo   *fakeRefreshTokenRepo
}

func (tm *fakeTxManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	accounts := tm.accountRepo.snapshot()
	tokens := tm.tokenRepo.snapshot()

	if err := fn(&fakeRepoFactory{accountRepo: tm.accountRepo, tokenRepo: tm.tokenRepo}); err != nil {
		tm.accountRepo.restore(accounts)
		tm.tokenRepo.restore(tokens)

		return err
	}

	return nil
}

type fakeRepoFactory struct {
	accountRepo *fakeAccountRepo
	tokenRepo   *fakeRefreshTokenRepo
}

func (f *fakeRepoFactory) NewAccountRepository() repository.AccountRepository {
	return f.accountRepo
}

func (f *fakeRepoFactory) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return f.tokenRepo
}

// fakeOAuthService returns a fixed identity for any token except "bad".
type fakeOAuthService struct {
	provider string
	identity *entity.OAuthIdentity
}

func (s *fakeOAuthService) VerifyIDToken(_ context.Context, idToken string) (*entity.OAuthIdentity, error) {
	if idToken == "bad" {
		return nil, errors.New("provider rejected token")
	}

	return s.identity, nil
}

func (s *fakeOAuthService) Provider() string {
	return s.provider
}
