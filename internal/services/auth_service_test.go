package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oes-platform/exam-service/internal/identity"
	"github.com/oes-platform/exam-service/internal/models"
)

// fakeProvider is an in-memory identity.Provider.
type fakeProvider struct {
	accounts  map[string]identity.Account // keyed by email
	passwords map[string]string
	nextID    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts:  make(map[string]identity.Account),
		passwords: make(map[string]string),
	}
}

func (p *fakeProvider) CreateUser(_ context.Context, email, password, displayName string) (identity.Account, error) {
	if _, ok := p.accounts[email]; ok {
		return identity.Account{}, identity.ErrUserExists
	}
	p.nextID++
	account := identity.Account{
		ID:          fmt.Sprintf("uid-%d", p.nextID),
		Email:       email,
		DisplayName: displayName,
	}
	p.accounts[email] = account
	p.passwords[email] = password
	return account, nil
}

func (p *fakeProvider) GetUserByEmail(_ context.Context, email string) (identity.Account, error) {
	account, ok := p.accounts[email]
	if !ok {
		return identity.Account{}, identity.ErrUserNotFound
	}
	return account, nil
}

func (p *fakeProvider) CheckPassword(_ context.Context, email, password string) error {
	stored, ok := p.passwords[email]
	if !ok {
		return identity.ErrUserNotFound
	}
	if stored != password {
		return identity.ErrInvalidCredentials
	}
	return nil
}

func (p *fakeProvider) SetPassword(_ context.Context, email, oldPassword, newPassword string) error {
	if err := p.CheckPassword(context.Background(), email, oldPassword); err != nil {
		return err
	}
	p.passwords[email] = newPassword
	return nil
}

func newAuthFixture(t *testing.T) (*fakeRepository, *fakeProvider, AuthService) {
	t.Helper()
	repo := newFakeRepository()
	provider := newFakeProvider()
	service := NewAuthService(repo, provider, testLogger(), testValidator())
	return repo, provider, service
}

func signUpRequest() *SignUpRequest {
	return &SignUpRequest{
		Email:           "ada@example.com",
		Password:        "s3cret!",
		ConfirmPassword: "s3cret!",
		FullName:        "Ada Lovelace",
	}
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates identity and mirror row", func(t *testing.T) {
		repo, provider, service := newAuthFixture(t)

		user, err := service.SignUp(ctx, signUpRequest())
		require.NoError(t, err)
		assert.Equal(t, models.RoleStudent, user.Role)
		assert.Equal(t, "ada@example.com", user.Email)

		account, err := provider.GetUserByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, account.ID, user.ID)

		stored, err := repo.User().GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", stored.FullName)
	})

	t.Run("explicit role is kept", func(t *testing.T) {
		_, _, service := newAuthFixture(t)

		req := signUpRequest()
		req.Role = models.RoleInstructor
		user, err := service.SignUp(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, models.RoleInstructor, user.Role)
	})

	t.Run("duplicate email is a distinct error", func(t *testing.T) {
		_, _, service := newAuthFixture(t)

		_, err := service.SignUp(ctx, signUpRequest())
		require.NoError(t, err)

		_, err = service.SignUp(ctx, signUpRequest())
		assert.ErrorIs(t, err, ErrDuplicateEmail)
		assert.True(t, IsConflict(err))
	})

	t.Run("short password is rejected", func(t *testing.T) {
		_, _, service := newAuthFixture(t)

		req := signUpRequest()
		req.Password = "abc"
		req.ConfirmPassword = "abc"
		_, err := service.SignUp(ctx, req)
		assert.True(t, IsValidation(err))
	})

	t.Run("mismatched confirmation is rejected", func(t *testing.T) {
		_, provider, service := newAuthFixture(t)

		req := signUpRequest()
		req.ConfirmPassword = "different"
		_, err := service.SignUp(ctx, req)
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		_, err = provider.GetUserByEmail(ctx, req.Email)
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials stamp last login", func(t *testing.T) {
		repo, _, service := newAuthFixture(t)
		created, err := service.SignUp(ctx, signUpRequest())
		require.NoError(t, err)

		user, err := service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "s3cret!"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)

		stored, err := repo.User().GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, _, service := newAuthFixture(t)
		_, err := service.SignUp(ctx, signUpRequest())
		require.NoError(t, err)

		_, wrongPass := service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "nope"})
		_, unknown := service.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "nope"})

		assert.ErrorIs(t, wrongPass, ErrAuthFailure)
		assert.ErrorIs(t, unknown, ErrAuthFailure)
		assert.Equal(t, wrongPass.Error(), unknown.Error())
	})
}

func TestAuthService_RequestPasswordReset(t *testing.T) {
	ctx := context.Background()
	_, _, service := newAuthFixture(t)
	_, err := service.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	// Known and unknown emails respond identically.
	assert.NoError(t, service.RequestPasswordReset(ctx, "ada@example.com"))
	assert.NoError(t, service.RequestPasswordReset(ctx, "ghost@example.com"))
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	_, _, service := newAuthFixture(t)
	_, err := service.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	err = service.ChangePassword(ctx, &ChangePasswordRequest{
		Email:       "ada@example.com",
		OldPassword: "wrong",
		NewPassword: "newpass1",
	})
	assert.ErrorIs(t, err, ErrAuthFailure)

	err = service.ChangePassword(ctx, &ChangePasswordRequest{
		Email:       "ada@example.com",
		OldPassword: "s3cret!",
		NewPassword: "newpass1",
	})
	require.NoError(t, err)

	_, err = service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "newpass1"})
	assert.NoError(t, err)
}
