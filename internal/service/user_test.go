package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/store"
)

func ptr[T any](v T) *T { return &v }

func TestUserService_Get_Permissions(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	admin := env.admin(t)
	maria := env.register(t, "Maria", "maria@example.com")
	joao := env.register(t, "João", "joao@example.com")

	got, err := env.users.Get(ctx, maria, maria.ID)
	require.NoError(t, err)
	assert.Equal(t, maria.ID, got.ID)

	_, err = env.users.Get(ctx, maria, joao.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	got, err = env.users.Get(ctx, admin, joao.ID)
	require.NoError(t, err)
	assert.Equal(t, "joao@example.com", got.Email)

	_, err = env.users.Get(ctx, admin, "123")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidID)

	_, err = env.users.Get(ctx, admin, "507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	maria := env.register(t, "Maria", "maria@example.com")

	updated, err := env.users.UpdateProfile(ctx, maria, domain.ProfilePatch{
		Name:    ptr("Maria Souza"),
		Phone:   ptr("11 98888-7777"),
		Address: &domain.Address{City: "Recife", State: "PE"},
		Preferences: &domain.Preferences{
			Notifications: false,
			Theme:         domain.ThemeDark,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", updated.Name)
	assert.Equal(t, "Recife", updated.Address.City)
	assert.Equal(t, domain.ThemeDark, updated.Preferences.Theme)
	assert.Equal(t, domain.RoleUser, updated.Role)

	_, err = env.users.UpdateProfile(ctx, maria, domain.ProfilePatch{
		Preferences: &domain.Preferences{Theme: "rosa"},
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestUserService_Update(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	admin := env.admin(t)
	maria := env.register(t, "Maria", "maria@example.com")
	env.register(t, "João", "joao@example.com")

	t.Run("non-admin cannot change role", func(t *testing.T) {
		_, err := env.users.Update(ctx, maria, maria.ID, domain.AdminPatch{Role: ptr(domain.RoleAdmin)})
		assert.ErrorIs(t, err, domainerrors.ErrAdminRequired)
	})

	t.Run("admin promotes user", func(t *testing.T) {
		updated, err := env.users.Update(ctx, admin, maria.ID, domain.AdminPatch{
			Role:          ptr(domain.RoleAdmin),
			EmailVerified: ptr(true),
		})
		require.NoError(t, err)
		assert.True(t, updated.IsAdmin())
		assert.True(t, updated.EmailVerified)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.users.Update(ctx, admin, maria.ID, domain.AdminPatch{Email: ptr("JOAO@example.com")})
		assert.ErrorIs(t, err, domainerrors.ErrEmailExists)
	})

	t.Run("admin cannot demote themself", func(t *testing.T) {
		_, err := env.users.Update(ctx, admin, admin.ID, domain.AdminPatch{Role: ptr(domain.RoleUser)})
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("admin cannot deactivate themself", func(t *testing.T) {
		_, err := env.users.Update(ctx, admin, admin.ID, domain.AdminPatch{Active: ptr(false)})
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})
}

func TestUserService_DeactivateAndReactivate(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	admin := env.admin(t)
	maria := env.register(t, "Maria", "maria@example.com")

	_, err := env.users.Deactivate(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	off, err := env.users.Deactivate(ctx, admin, maria.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	// Soft delete: the record stays
	stored, err := env.store.GetUser(ctx, maria.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "maria@example.com", Password: "segredo123"})
	assert.ErrorIs(t, err, domainerrors.ErrAccountDisabled)

	on, err := env.users.Reactivate(ctx, admin, maria.ID)
	require.NoError(t, err)
	assert.True(t, on.Active)
}

func TestUserService_List(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	env.admin(t)
	env.register(t, "Maria", "maria@example.com")
	env.register(t, "João", "joao@example.com")

	page, err := env.users.List(ctx, store.UserQuery{Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, store.DefaultLimit, page.Limit)

	page, err = env.users.List(ctx, store.UserQuery{Search: "JOAO"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "joao@example.com", page.Items[0].Email)

	_, err = env.users.List(ctx, store.UserQuery{Role: "gerente"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
