package postgres

import (
	"context"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// refreshTokenRepository implements the repository.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// CreateRefreshToken persists a new refresh token, representing a session segment.
func (repo *refreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := fromRefreshTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrRefreshTokenInvalid.WrapMessage("refresh token hash collision")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrAccountNotFound.WrapMessage("invalid account reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	// Update the entity with generated values
	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindRefreshTokenByHash retrieves a refresh token record by its stored hash,
// revoked or not. Deciding what a revoked record means is the caller's job.
func (repo *refreshTokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toRefreshTokenDomain(&tokenM), nil
}

// FindRefreshTokenByID retrieves a refresh token record by its unique ID.
func (repo *refreshTokenRepository) FindRefreshTokenByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toRefreshTokenDomain(&tokenM), nil
}

// RevokeRefreshToken marks a single token revoked. Already-revoked tokens are
// left untouched, which keeps the operation idempotent.
func (repo *refreshTokenRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("id = ?", id).
		Update("revoked", true)
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrRefreshTokenNotFound
	}

	return nil
}

// RevokeAndLink atomically claims the token for rotation. The WHERE clause on
// revoked makes this a compare-and-swap: under concurrent rotation of the same
// value, exactly one UPDATE matches a row and every other caller sees zero
// rows affected.
func (repo *refreshTokenRepository) RevokeAndLink(ctx context.Context, tokenHash string, replacedBy uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("token_hash = ? AND NOT revoked", tokenHash).
		Updates(map[string]any{
			"revoked":     true,
			"replaced_by": replacedBy,
		})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the hash does not exist or another request already rotated it.
		var count int64
		if err := repo.db.WithContext(ctx).
			Model(&model.RefreshTokenModel{}).
			Where("token_hash = ?", tokenHash).
			Count(&count).Error; err != nil {
			return errors.WithStack(err)
		}
		if count == 0 {
			return repository.ErrRefreshTokenNotFound
		}

		return repository.ErrRefreshTokenRotated
	}

	return nil
}

// RevokeRefreshTokensByAccountID revokes every live token for an account.
func (repo *refreshTokenRepository) RevokeRefreshTokensByAccountID(ctx context.Context, accountID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("account_id = ? AND NOT revoked", accountID).
		Update("revoked", true).Error; err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// FindChainByAccountID returns all token records for an account, newest first.
func (repo *refreshTokenRepository) FindChainByAccountID(ctx context.Context, accountID uuid.UUID) ([]*entity.RefreshToken, error) {
	var tokenModels []*model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&tokenModels).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	tokens := make([]*entity.RefreshToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toRefreshTokenDomain(tokenM))
	}

	return tokens, nil
}

// DeleteExpiredRefreshTokens removes records whose expiry is at or before the given instant.
func (repo *refreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&model.RefreshTokenModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

// CountActiveSessionsByAccountID returns the number of live sessions for an account.
func (repo *refreshTokenRepository) CountActiveSessionsByAccountID(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("account_id = ? AND NOT revoked AND expires_at > ?", accountID, time.Now()).
		Count(&count).Error; err != nil {
		return 0, errors.WithStack(err)
	}

	return int(count), nil
}

// --- Mapper Functions ---

// toRefreshTokenDomain converts a GORM RefreshTokenModel to a domain RefreshToken entity.
func toRefreshTokenDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	if data == nil {
		return nil
	}

	return &entity.RefreshToken{
		ID:         data.ID,
		AccountID:  data.AccountID,
		TokenHash:  data.TokenHash,
		ExpiresAt:  data.ExpiresAt,
		Revoked:    data.Revoked,
		ReplacedBy: data.ReplacedBy,
		CreatedAt:  data.CreatedAt,
	}
}

// fromRefreshTokenDomain converts a domain RefreshToken entity to a GORM RefreshTokenModel.
func fromRefreshTokenDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	if data == nil {
		return nil
	}

	return &model.RefreshTokenModel{
		ID:         data.ID,
		AccountID:  data.AccountID,
		TokenHash:  data.TokenHash,
		ExpiresAt:  data.ExpiresAt,
		Revoked:    data.Revoked,
		ReplacedBy: data.ReplacedBy,
		CreatedAt:  data.CreatedAt,
	}
}
