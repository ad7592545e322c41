package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	ActiveOnly bool    `json:"active_only"`
	CreatedBy  *string `json:"created_by"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	SortBy     string  `json:"sort_by"`    // "created_at", "name"
	SortOrder  string  `json:"sort_order"` // "asc", "desc"
}

type ResultFilters struct {
	StudentID *string    `json:"student_id"`
	ExamID    *uint      `json:"exam_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	OrderBy   string     `json:"order_by"`   // "score", "percentage", "submitted_at"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

// ===== STATISTICS STRUCTS =====

type ExamResultStats struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	PassRate      float64 `json:"pass_rate"`
	BestScore     int     `json:"best_score"`
	WorstScore    int     `json:"worst_score"`
}

// ===== REPOSITORY INTERFACES =====

// ExamRepository covers the exam collection. Counter columns are owned by
// QuestionRepository; Update never touches them.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, error)
	// Update applies a partial merge: absent keys stay untouched.
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	SetActive(ctx context.Context, id uint, active bool) error
	Count(ctx context.Context) (int64, error)
}

// QuestionRepository owns the question sub-collection and keeps the parent
// exam's total_questions/total_points in step with every mutation.
type QuestionRepository interface {
	// Add inserts the question and increments the exam counters in one
	// transaction.
	Add(ctx context.Context, examID uint, question *models.Question) error
	GetByID(ctx context.Context, examID, questionID uint) (*models.Question, error)
	// Delete removes the question and decrements the exam counters by
	// the question's stored points in one transaction.
	Delete(ctx context.Context, examID, questionID uint) error
	// ListByExam returns questions ordered by question_number asc,
	// ties broken by id asc.
	ListByExam(ctx context.Context, examID uint) ([]models.Question, error)
	// RecomputeExamCounters rewrites the exam counters from the live
	// question rows. Reconciliation path for counter drift.
	RecomputeExamCounters(ctx context.Context, examID uint) error
}

// ResultRepository owns the immutable result collection and the coupled
// user counter increments.
type ResultRepository interface {
	// Submit writes the result and increments the student's exams_taken
	// and total_points in one transaction. When a result with the same
	// attempt id already exists the stored row is returned and created
	// is false; counters are not touched again.
	Submit(ctx context.Context, result *models.Result) (created bool, err error)
	GetByID(ctx context.Context, id uint) (*models.Result, error)
	GetByAttemptID(ctx context.Context, attemptID string) (*models.Result, error)
	List(ctx context.Context, filters ResultFilters) ([]*models.Result, error)
	GetByStudent(ctx context.Context, studentID string) ([]*models.Result, error)
	Count(ctx context.Context) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// Update applies a partial merge; counter columns are owned by
	// ResultRepository.Submit.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error
	Count(ctx context.Context) (int64, error)
}

// Repository aggregates the per-collection repositories.
type Repository interface {
	Exam() ExamRepository
	Question() QuestionRepository
	Result() ResultRepository
	User() UserRepository
}

// ===== ERROR HELPERS =====

// IsNotFoundError reports whether err is the store's missing-record
// condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
