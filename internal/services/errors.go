package services

import (
	"errors"
	"fmt"

	apperrors "github.com/oes-platform/exam-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Exam specific errors
	ErrExamNotFound = errors.New("exam not found")
	ErrExamInactive = errors.New("exam is not active")

	// Question specific errors
	ErrQuestionNotFound = errors.New("question not found")

	// Attempt specific errors
	ErrNoActiveAttempt      = errors.New("no attempt in progress")
	ErrAttemptInProgress    = errors.New("an attempt is already in progress")
	ErrAttemptExpired       = errors.New("attempt time has expired")
	ErrAttemptAlreadyGraded = errors.New("attempt already submitted and graded")

	// Result specific errors
	ErrResultNotFound = errors.New("result not found")

	// User/auth errors
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrAuthFailure    = errors.New("authentication failed")
)

// ===== SHARED ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// SubmissionError wraps the terminal failure of a submit retry loop. The
// captured answers stay in the session, so the caller can retry manually.
type SubmissionError struct {
	AttemptID string
	Attempts  int
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission of attempt %s failed after %d tries: %v", e.AttemptID, e.Attempts, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ===== ERROR HELPERS =====

// IsNotFound checks if err represents a missing-entity condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNoActiveAttempt)
}

// IsValidation checks if err represents a validation failure.
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var single *ValidationError
	if errors.As(err, &single) {
		return true
	}
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if err represents a duplicate or state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrAttemptInProgress) ||
		errors.Is(err, ErrAttemptAlreadyGraded)
}

// IsAuthFailure checks if err represents a credential failure. Surfaced
// generically so callers never learn which of email or password was wrong.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailure)
}
