package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oes-platform/exam-service/internal/identity"
	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
	"github.com/oes-platform/exam-service/internal/utils"
)

// ===== REQUEST TYPES =====

type SignUpRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required,min=6"`
	ConfirmPassword string          `json:"confirm_password" validate:"required"`
	FullName        string          `json:"full_name" validate:"required,min=1,max=100"`
	Role            models.UserRole `json:"role" validate:"omitempty,user_role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ===== SERVICE INTERFACE =====

// AuthService fronts the external identity provider. Credentials pass
// straight through; this service only keeps the mirrored user row with
// its explicit role. Authorization always reads that stored role, never
// patterns in the email address.
type AuthService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*models.User, error)
	Login(ctx context.Context, req *LoginRequest) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, req *ChangePasswordRequest) error
}

type authService struct {
	repo      repositories.Repository
	provider  identity.Provider
	logger    *slog.Logger
	validator *utils.Validator
}

func NewAuthService(repo repositories.Repository, provider identity.Provider, logger *slog.Logger, validator *utils.Validator) AuthService {
	return &authService{
		repo:      repo,
		provider:  provider,
		logger:    logger,
		validator: validator,
	}
}

func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, NewValidationError("confirm_password", "passwords don't match", nil)
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}

	account, err := s.provider.CreateUser(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	user := &models.User{
		ID:       account.ID,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	s.logger.Info("User signed up",
		"user_id", user.ID,
		"role", user.Role)

	return user, nil
}

// Login verifies credentials with the provider and stamps last_login_at.
// Unknown email and wrong password both surface as ErrAuthFailure.
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.provider.CheckPassword(ctx, req.Email, req.Password); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, ErrAuthFailure
		}
		return nil, fmt.Errorf("identity provider check failed: %w", err)
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Identity exists but the mirror row is missing; treat as a
			// generic auth failure and log for reconciliation.
			s.logger.Error("Identity present but user row missing", "email_known_to_provider", true)
			return nil, ErrAuthFailure
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.repo.User().UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Advisory field; login still succeeds.
		s.logger.Warn("Failed to stamp last login", "user_id", user.ID, "error", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// RequestPasswordReset confirms the account exists and defers the actual
// reset flow to the provider. The response is identical either way so
// the endpoint cannot be used to probe for registered emails.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := s.provider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	s.logger.Info("Password reset requested", "email_registered", true)
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	if err := s.provider.SetPassword(ctx, req.Email, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrInvalidCredentials) {
			return ErrAuthFailure
		}
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("Password changed")
	return nil
}
