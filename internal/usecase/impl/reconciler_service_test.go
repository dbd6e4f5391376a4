package impl

import (
	"context"
	"testing"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_ProvisionsNewAccount(t *testing.T) {
	f := newTestFixture(t, nil)

	account, err := f.reconciler.FindOrCreate(context.Background(), &entity.OAuthIdentity{
		Provider: "google",
		Email:    "new@example.com",
		Name:     "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", account.Email)
	assert.Equal(t, "New User", account.Name)
	assert.Equal(t, 18, account.Age)
	assert.True(t, account.Active)
	assert.NotEmpty(t, account.CredentialHash, "provisioned accounts carry an unguessable credential")
}

func TestReconciler_FindsExistingAccount(t *testing.T) {
	f := newTestFixture(t, nil)
	session := f.register(t, "alice@example.com")

	account, err := f.reconciler.FindOrCreate(context.Background(), &entity.OAuthIdentity{
		Provider: "google",
		Email:    "Alice@Example.com", // case-insensitive match
		Name:     "Someone Else",
	})
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, account.ID)
	assert.Equal(t, "Test User", account.Name, "existing account data wins over provider data")
}

func TestReconciler_IsIdempotent(t *testing.T) {
	f := newTestFixture(t, nil)
	identity := &entity.OAuthIdentity{Provider: "google", Email: "new@example.com", Name: "New User"}

	first, err := f.reconciler.FindOrCreate(context.Background(), identity)
	require.NoError(t, err)
	second, err := f.reconciler.FindOrCreate(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestReconciler_EmailFallbackForName(t *testing.T) {
	f := newTestFixture(t, nil)

	account, err := f.reconciler.FindOrCreate(context.Background(), &entity.OAuthIdentity{
		Provider: "google",
		Email:    "nameless@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "nameless@example.com", account.Name)
}

func TestReconciler_RejectsEmptyIdentity(t *testing.T) {
	f := newTestFixture(t, nil)

	_, err := f.reconciler.FindOrCreate(context.Background(), &entity.OAuthIdentity{Provider: "google"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = f.reconciler.FindOrCreate(context.Background(), nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}
