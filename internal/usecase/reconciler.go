package usecase

import (
	"context"

	"passport/internal/domain/entity"
)

// IdentityReconciler maps a provider-verified external identity to a local
// account, creating one when the email is unknown. Provisioned accounts get
// a random unguessable credential and a configured placeholder age.
type IdentityReconciler interface {
	FindOrCreate(ctx context.Context, identity *entity.OAuthIdentity) (*entity.Account, error)
}
