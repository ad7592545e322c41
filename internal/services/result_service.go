package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/oes-platform/exam-service/internal/events"
	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
	"github.com/oes-platform/exam-service/internal/utils"
)

// ===== REQUEST TYPES =====

type SubmitResultRequest struct {
	AttemptID        string         `json:"attempt_id" validate:"required,uuid4"`
	ExamID           uint           `json:"exam_id" validate:"required"`
	ExamName         string         `json:"exam_name" validate:"required"`
	StudentID        string         `json:"student_id" validate:"required"`
	StudentName      string         `json:"student_name" validate:"required"`
	Score            int            `json:"score" validate:"min=0"`
	MaxScore         int            `json:"max_score" validate:"min=0"`
	Answers          map[uint]string `json:"answers"`
	TimeTakenSeconds int            `json:"time_taken_seconds" validate:"min=0"`
}

type ResultListRequest struct {
	StudentID *string `json:"student_id"`
	ExamID    *uint   `json:"exam_id"`
	OrderBy   string  `json:"order_by" validate:"omitempty,oneof=score percentage submitted_at"`
	SortOrder string  `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	Limit     int     `json:"limit" validate:"omitempty,min=1,max=500"`
}

// ===== SERVICE INTERFACE =====

// ResultService performs result aggregation: the result row and the
// student's denormalized counters are committed as one unit by the
// repository, and a result.submitted event is published for downstream
// reconciliation.
type ResultService interface {
	Submit(ctx context.Context, req *SubmitResultRequest) (*models.Result, bool, error)
	GetByAttemptID(ctx context.Context, attemptID string) (*models.Result, error)
	List(ctx context.Context, req *ResultListRequest) ([]*models.Result, error)
}

type resultService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewResultService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) ResultService {
	return &resultService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// Submit persists a graded attempt. The percentage is computed here, once;
// later edits to the exam never touch stored results. The bool return
// reports whether a new row was written: a retried attempt id yields the
// original row and false, and counters stay untouched.
func (s *resultService) Submit(ctx context.Context, req *SubmitResultRequest) (*models.Result, bool, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, false, err
	}

	percentage := 0.0
	if req.MaxScore > 0 {
		percentage = float64(req.Score) / float64(req.MaxScore) * 100
	}

	result := &models.Result{
		AttemptID:        req.AttemptID,
		ExamID:           req.ExamID,
		ExamName:         req.ExamName,
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		Score:            req.Score,
		MaxScore:         req.MaxScore,
		Percentage:       percentage,
		Answers:          datatypes.NewJSONType(req.Answers),
		TimeTakenSeconds: req.TimeTakenSeconds,
		SubmittedAt:      time.Now(),
	}

	created, err := s.repo.Result().Submit(ctx, result)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("failed to submit result: %w", err)
	}

	if !created {
		s.logger.Info("Duplicate submission, returning stored result",
			"attempt_id", req.AttemptID,
			"result_id", result.ID)
		return result, false, nil
	}

	event := events.NewExamEvent(events.EventResultSubmitted, events.ResultSubmittedEvent{
		ResultID:    result.ID,
		AttemptID:   result.AttemptID,
		ExamID:      result.ExamID,
		ExamName:    result.ExamName,
		StudentID:   result.StudentID,
		Score:       result.Score,
		MaxScore:    result.MaxScore,
		Percentage:  result.Percentage,
		SubmittedAt: result.SubmittedAt,
	})
	if err := s.publisher.PublishExamEvent(ctx, event); err != nil {
		// The write committed; the reconciliation consumer just loses
		// one signal. Log it, do not fail the submission.
		s.logger.Warn("Failed to publish result.submitted event",
			"attempt_id", result.AttemptID,
			"error", err)
	}

	s.logger.Info("Result submitted",
		"result_id", result.ID,
		"attempt_id", result.AttemptID,
		"exam_id", result.ExamID,
		"student_id", result.StudentID,
		"score", result.Score,
		"max_score", result.MaxScore)

	return result, true, nil
}

func (s *resultService) GetByAttemptID(ctx context.Context, attemptID string) (*models.Result, error) {
	result, err := s.repo.Result().GetByAttemptID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *resultService) List(ctx context.Context, req *ResultListRequest) ([]*models.Result, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	results, err := s.repo.Result().List(ctx, repositories.ResultFilters{
		StudentID: req.StudentID,
		ExamID:    req.ExamID,
		OrderBy:   req.OrderBy,
		SortOrder: req.SortOrder,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}
