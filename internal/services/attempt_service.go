package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oes-platform/exam-service/internal/grading"
	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
	"github.com/oes-platform/exam-service/internal/sessions"
)

const (
	// maxSubmitAttempts bounds the retry loop around a transient store
	// failure during submission.
	maxSubmitAttempts = 3
	submitBackoffBase = 200 * time.Millisecond
)

// ===== VIEW TYPES =====

// QuestionView is a question as shown to the student: the answer key
// never leaves the server.
type QuestionView struct {
	ID             uint                `json:"id"`
	Text           string              `json:"text"`
	Type           models.QuestionType `json:"type"`
	Options        []string            `json:"options,omitempty"`
	Points         int                 `json:"points"`
	QuestionNumber int                 `json:"question_number"`
}

type AttemptView struct {
	AttemptID        string            `json:"attempt_id"`
	State            sessions.State    `json:"state"`
	Exam             models.Exam       `json:"exam"`
	Questions        []QuestionView    `json:"questions,omitempty"`
	Answers          map[uint]string   `json:"answers,omitempty"`
	RemainingSeconds int               `json:"remaining_seconds"`
}

// ===== SERVICE INTERFACE =====

// AttemptService drives one student's exam attempt through its states.
// All attempt state lives in the student's session until Submit persists
// a Result; a crossed deadline auto-submits with whatever was captured.
type AttemptService interface {
	Select(ctx context.Context, studentID string, examID uint) (*AttemptView, error)
	Start(ctx context.Context, studentID string) (*AttemptView, error)
	SaveAnswer(ctx context.Context, studentID string, questionID uint, answer string) (*AttemptView, error)
	Progress(ctx context.Context, studentID string) (*AttemptView, error)
	Submit(ctx context.Context, studentID string) (*models.Result, error)
	Abandon(ctx context.Context, studentID string) error
}

type attemptService struct {
	repo    repositories.Repository
	results ResultService
	store   sessions.Store
	logger  *slog.Logger

	// sleep is swapped out in tests to keep the backoff loop fast.
	sleep func(time.Duration)
}

func NewAttemptService(repo repositories.Repository, results ResultService, store sessions.Store, logger *slog.Logger) AttemptService {
	return &attemptService{
		repo:    repo,
		results: results,
		store:   store,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Select picks an active exam from the catalog and opens a fresh session
// for it. A session whose attempt is still running blocks a new
// selection.
func (s *attemptService) Select(ctx context.Context, studentID string, examID uint) (*AttemptView, error) {
	if existing, ok := s.store.Get(studentID); ok {
		switch existing.State() {
		case sessions.StateInProgress, sessions.StateSubmitting:
			return nil, ErrAttemptInProgress
		case sessions.StateExpired:
			// A lapsed attempt still holds captured answers; finish it
			// before letting a new one begin.
			if _, err := s.Submit(ctx, studentID); err != nil {
				return nil, err
			}
		}
	}

	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if !exam.IsActive {
		return nil, ErrExamInactive
	}

	student, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	session := sessions.New(studentID, student.FullName)
	if err := session.Select(*exam); err != nil {
		return nil, err
	}
	s.store.Put(studentID, session)

	s.logger.Info("Exam selected",
		"attempt_id", session.AttemptID(),
		"exam_id", examID,
		"student_id", studentID)

	return s.view(session), nil
}

// Start snapshots the exam's questions and starts the countdown.
func (s *attemptService) Start(ctx context.Context, studentID string) (*AttemptView, error) {
	session, ok := s.store.Get(studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	questions, err := s.repo.Question().ListByExam(ctx, session.Exam().ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	if err := session.Start(questions); err != nil {
		return nil, err
	}

	s.logger.Info("Attempt started",
		"attempt_id", session.AttemptID(),
		"exam_id", session.Exam().ID,
		"student_id", studentID,
		"questions", len(questions))

	return s.view(session), nil
}

// SaveAnswer captures one answer. When the deadline has already passed
// the attempt is auto-submitted with the answers captured before expiry
// and the caller gets ErrAttemptExpired.
func (s *attemptService) SaveAnswer(ctx context.Context, studentID string, questionID uint, answer string) (*AttemptView, error) {
	session, ok := s.store.Get(studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	if err := session.Answer(questionID, answer); err != nil {
		if err == sessions.ErrAttemptExpired {
			if _, submitErr := s.Submit(ctx, studentID); submitErr != nil {
				return nil, submitErr
			}
			return nil, ErrAttemptExpired
		}
		return nil, err
	}

	return s.view(session), nil
}

// Progress reports the current attempt view, auto-submitting first when
// the countdown has crossed zero.
func (s *attemptService) Progress(ctx context.Context, studentID string) (*AttemptView, error) {
	session, ok := s.store.Get(studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	if session.State() == sessions.StateExpired {
		if _, err := s.Submit(ctx, studentID); err != nil {
			return nil, err
		}
		return nil, ErrAttemptExpired
	}

	return s.view(session), nil
}

// Submit grades the snapshot against the captured answers and persists
// the result, retrying transient store failures with backoff. On success
// the session completes and is dropped; on exhausted retries the answers
// stay in the session for a manual retry.
func (s *attemptService) Submit(ctx context.Context, studentID string) (*models.Result, error) {
	session, ok := s.store.Get(studentID)
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	answers, err := session.BeginSubmit()
	if err != nil {
		return nil, err
	}

	summary := grading.Grade(session.Questions(), answers)
	exam := session.Exam()

	req := &SubmitResultRequest{
		AttemptID:        session.AttemptID(),
		ExamID:           exam.ID,
		ExamName:         exam.Name,
		StudentID:        session.StudentID(),
		StudentName:      session.StudentName(),
		Score:            summary.Score,
		MaxScore:         summary.MaxScore,
		Answers:          answers,
		TimeTakenSeconds: int(session.Elapsed().Seconds()),
	}

	var result *models.Result
	var lastErr error
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		result, _, lastErr = s.results.Submit(ctx, req)
		if lastErr == nil {
			break
		}
		if IsValidation(lastErr) || IsNotFound(lastErr) {
			// Not transient; retrying cannot help.
			break
		}
		if attempt < maxSubmitAttempts {
			backoff := submitBackoffBase << (attempt - 1)
			s.logger.Warn("Result submission failed, retrying",
				"attempt_id", session.AttemptID(),
				"try", attempt,
				"backoff", backoff.String(),
				"error", lastErr)
			s.sleep(backoff)
		}
	}

	if lastErr != nil {
		// Keep the captured answers so the student can resubmit.
		if err := session.FailSubmit(); err != nil {
			s.logger.Error("Failed to roll back session state", "error", err)
		}
		s.logger.Error("Result submission failed permanently",
			"attempt_id", session.AttemptID(),
			"student_id", studentID,
			"error", lastErr)
		return nil, &SubmissionError{
			AttemptID: session.AttemptID(),
			Attempts:  maxSubmitAttempts,
			Err:       lastErr,
		}
	}

	if err := session.CompleteSubmit(); err != nil {
		return nil, err
	}
	s.store.Delete(studentID)

	s.logger.Info("Attempt completed",
		"attempt_id", req.AttemptID,
		"student_id", studentID,
		"score", result.Score,
		"max_score", result.MaxScore)

	return result, nil
}

// Abandon discards an attempt that never reached submission.
func (s *attemptService) Abandon(_ context.Context, studentID string) error {
	if _, ok := s.store.Get(studentID); !ok {
		return ErrNoActiveAttempt
	}
	s.store.Delete(studentID)
	s.logger.Info("Attempt abandoned", "student_id", studentID)
	return nil
}

func (s *attemptService) view(session *sessions.Session) *AttemptView {
	view := &AttemptView{
		AttemptID:        session.AttemptID(),
		State:            session.State(),
		Exam:             session.Exam(),
		Answers:          session.Answers(),
		RemainingSeconds: int(session.Remaining().Seconds()),
	}

	for _, q := range session.Questions() {
		view.Questions = append(view.Questions, QuestionView{
			ID:             q.ID,
			Text:           q.Text,
			Type:           q.Type,
			Options:        q.Options,
			Points:         q.Points,
			QuestionNumber: q.QuestionNumber,
		})
	}

	return view
}
