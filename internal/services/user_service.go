package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
	"github.com/oes-platform/exam-service/internal/utils"
)

type UpdateUserRequest struct {
	FullName *string          `json:"full_name" validate:"omitempty,min=1,max=100"`
	Role     *models.UserRole `json:"role" validate:"omitempty,user_role"`
}

type UserService interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest) error
}

type userService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewUserService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) UserService {
	return &userService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.User().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, id string, req *UpdateUserRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if req.FullName != nil {
		fields["full_name"] = *req.FullName
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.repo.User().Update(ctx, id, fields); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("User updated", "user_id", id)
	return nil
}
