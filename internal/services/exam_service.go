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

// ===== REQUEST / RESPONSE TYPES =====

type CreateExamRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Duration    int     `json:"duration" validate:"required,min=1,max=600"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type UpdateExamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Duration    *int    `json:"duration" validate:"omitempty,min=1,max=600"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type AddQuestionRequest struct {
	Text           string              `json:"text" validate:"required,min=1"`
	Type           models.QuestionType `json:"type" validate:"required,question_type"`
	Options        []string            `json:"options" validate:"omitempty,max=10,dive,min=1"`
	CorrectAnswer  string              `json:"correct_answer" validate:"required"`
	Points         int                 `json:"points" validate:"required,min=1,max=100"`
	QuestionNumber int                 `json:"question_number" validate:"required,min=1"`
}

// ===== SERVICE INTERFACE =====

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*models.Exam, error)
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Exam, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest) error
	SetActive(ctx context.Context, id uint, active bool, changedBy string) error

	AddQuestion(ctx context.Context, examID uint, req *AddQuestionRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, examID, questionID uint) error
	ListQuestions(ctx context.Context, examID uint) ([]models.Question, error)
	RecountQuestions(ctx context.Context, examID uint) (*models.Exam, error)
}

type examService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewExamService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) ExamService {
	return &examService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== EXAM OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Name:        req.Name,
		Duration:    req.Duration,
		Description: req.Description,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created",
		"exam_id", exam.ID,
		"name", exam.Name,
		"created_by", creatorID)

	return exam, nil
}

func (s *examService) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *examService) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam with questions: %w", err)
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, activeOnly bool) ([]*models.Exam, error) {
	exams, err := s.repo.Exam().List(ctx, repositories.ExamFilters{ActiveOnly: activeOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Duration != nil {
		fields["duration"] = *req.Duration
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.repo.Exam().Update(ctx, id, fields); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to update exam: %w", err)
	}
	return nil
}

func (s *examService) SetActive(ctx context.Context, id uint, active bool, changedBy string) error {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Exam().SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to set exam active flag: %w", err)
	}

	eventType := events.EventExamActivated
	if !active {
		eventType = events.EventExamDeactivated
	}
	event := events.NewExamEvent(eventType, events.ExamActivationEvent{
		ExamID:    exam.ID,
		ExamName:  exam.Name,
		IsActive:  active,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	})
	if err := s.publisher.PublishExamEvent(ctx, event); err != nil {
		// Publishing is advisory; the flag change already committed.
		s.logger.Warn("Failed to publish exam activation event",
			"exam_id", id, "error", err)
	}

	s.logger.Info("Exam activation changed",
		"exam_id", id,
		"is_active", active,
		"changed_by", changedBy)

	return nil
}

// ===== QUESTION OPERATIONS =====

func (s *examService) AddQuestion(ctx context.Context, examID uint, req *AddQuestionRequest) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := validateQuestionContent(req); err != nil {
		return nil, err
	}

	question := &models.Question{
		Text:           req.Text,
		Type:           req.Type,
		Options:        datatypes.NewJSONSlice(req.Options),
		CorrectAnswer:  req.CorrectAnswer,
		Points:         req.Points,
		QuestionNumber: req.QuestionNumber,
	}

	if err := s.repo.Question().Add(ctx, examID, question); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to add question: %w", err)
	}

	s.logger.Info("Question added",
		"exam_id", examID,
		"question_id", question.ID,
		"type", question.Type,
		"points", question.Points)

	return question, nil
}

func (s *examService) DeleteQuestion(ctx context.Context, examID, questionID uint) error {
	if err := s.repo.Question().Delete(ctx, examID, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted",
		"exam_id", examID,
		"question_id", questionID)

	return nil
}

func (s *examService) ListQuestions(ctx context.Context, examID uint) ([]models.Question, error) {
	questions, err := s.repo.Question().ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// RecountQuestions rebuilds the exam's denormalized counters from the
// live question rows. This is the reconciliation path for counter drift
// after a partially applied maintenance script or manual data fix.
func (s *examService) RecountQuestions(ctx context.Context, examID uint) (*models.Exam, error) {
	before, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Question().RecomputeExamCounters(ctx, examID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to recompute exam counters: %w", err)
	}

	after, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	if delta := after.TotalPoints - before.TotalPoints; delta != 0 {
		event := events.NewExamEvent(events.EventCounterAdjusted, events.CounterAdjustedEvent{
			Entity:     "exam",
			EntityID:   fmt.Sprintf("%d", examID),
			Field:      "total_points",
			Delta:      delta,
			AdjustedAt: time.Now(),
		})
		if err := s.publisher.PublishExamEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish counter adjustment event",
				"exam_id", examID, "error", err)
		}
	}

	s.logger.Info("Exam counters recomputed",
		"exam_id", examID,
		"total_questions", after.TotalQuestions,
		"total_points", after.TotalPoints)

	return after, nil
}

// validateQuestionContent enforces the per-type shape rules the struct
// tags cannot express.
func validateQuestionContent(req *AddQuestionRequest) error {
	switch req.Type {
	case models.MultipleChoice:
		if len(req.Options) < 2 {
			return NewValidationError("options", "multiple choice questions need at least 2 options", len(req.Options))
		}
		if !containsString(req.Options, req.CorrectAnswer) {
			return NewValidationError("correct_answer", "must be one of the options", req.CorrectAnswer)
		}
	case models.TrueFalse:
		if req.CorrectAnswer != "True" && req.CorrectAnswer != "False" {
			return NewValidationError("correct_answer", "must be True or False", req.CorrectAnswer)
		}
	case models.ShortAnswer, models.Essay:
		if len(req.Options) > 0 {
			return NewValidationError("options", "not allowed for this question type", req.Options)
		}
	}
	return nil
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
