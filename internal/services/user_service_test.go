package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oes-platform/exam-service/internal/models"
)

func newUserFixture(t *testing.T) (*fakeRepository, UserService) {
	t.Helper()
	repo := newFakeRepository()
	service := NewUserService(repo, testLogger(), testValidator())

	require.NoError(t, repo.User().Create(context.Background(), &models.User{
		ID:       "stu-1",
		Email:    "ada@example.com",
		FullName: "Ada Lovelace",
		Role:     models.RoleStudent,
	}))
	return repo, service
}

func TestUserService_GetByID(t *testing.T) {
	ctx := context.Background()
	_, service := newUserFixture(t)

	user, err := service.GetByID(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.FullName)

	_, err = service.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes a student to instructor", func(t *testing.T) {
		repo, service := newUserFixture(t)

		role := models.RoleInstructor
		require.NoError(t, service.Update(ctx, "stu-1", &UpdateUserRequest{Role: &role}))

		user, err := repo.User().GetByID(ctx, "stu-1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleInstructor, user.Role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, service := newUserFixture(t)

		role := models.UserRole("superuser")
		err := service.Update(ctx, "stu-1", &UpdateUserRequest{Role: &role})
		assert.True(t, IsValidation(err))
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		_, service := newUserFixture(t)
		assert.NoError(t, service.Update(ctx, "stu-1", &UpdateUserRequest{}))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, service := newUserFixture(t)
		name := "Nobody"
		err := service.Update(ctx, "ghost", &UpdateUserRequest{FullName: &name})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	repo, service := newUserFixture(t)
	require.NoError(t, repo.User().Create(ctx, &models.User{
		ID:       "stu-2",
		Email:    "grace@example.com",
		FullName: "Grace Hopper",
		Role:     models.RoleStudent,
	}))

	users, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
