// Package sessions tracks a single student's in-progress exam attempt.
// A Session lives only in the student's server-side session until the
// result is persisted; nothing is written to the store before submit.
package sessions

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oes-platform/exam-service/internal/models"
)

// State is the attempt lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateSelected   State = "selected"
	StateInProgress State = "in_progress"
	StateExpired    State = "expired"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
)

var (
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrExamInactive      = errors.New("exam is not active")
	ErrAttemptExpired    = errors.New("attempt time has expired")
	ErrNoExamSelected    = errors.New("no exam selected")
)

// Session is one student's attempt context. It snapshots the exam and its
// questions at start, so admin edits never disturb an attempt in flight.
// A session is owned by a single request cycle at a time; the mutex only
// guards against store-level sharing.
type Session struct {
	mu sync.Mutex

	attemptID   string
	studentID   string
	studentName string

	state     State
	exam      models.Exam
	questions []models.Question
	startedAt time.Time
	answers   map[uint]string

	// resumeState remembers where a failed submit should fall back to so
	// captured answers survive for a manual retry.
	resumeState State

	now func() time.Time
}

// New returns an Idle session for the given student.
func New(studentID, studentName string) *Session {
	return &Session{
		attemptID:   uuid.NewString(),
		studentID:   studentID,
		studentName: studentName,
		state:       StateIdle,
		answers:     make(map[uint]string),
		now:         time.Now,
	}
}

// NewWithClock is New with an injectable clock, for tests.
func NewWithClock(studentID, studentName string, now func() time.Time) *Session {
	s := New(studentID, studentName)
	s.now = now
	return s
}

func (s *Session) AttemptID() string   { return s.attemptID }
func (s *Session) StudentID() string   { return s.studentID }
func (s *Session) StudentName() string { return s.studentName }

// State returns the lifecycle position, folding a lapsed deadline into
// Expired even when nothing has poked the session since it lapsed.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkExpiryLocked()
	return s.state
}

// Select moves Idle -> Selected for an active exam.
func (s *Session) Select(exam models.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrInvalidTransition
	}
	if !exam.IsActive {
		return ErrExamInactive
	}

	s.exam = exam
	s.state = StateSelected
	return nil
}

// Start moves Selected -> InProgress, freezing the question snapshot and
// recording the start time. The answer map begins empty.
func (s *Session) Start(questions []models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelected {
		return ErrInvalidTransition
	}

	s.questions = make([]models.Question, len(questions))
	copy(s.questions, questions)
	s.startedAt = s.now()
	s.answers = make(map[uint]string)
	s.state = StateInProgress
	return nil
}

// Answer captures or overwrites the answer for one question. Input is
// refused once the deadline has passed.
func (s *Session) Answer(questionID uint, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkExpiryLocked()
	if s.state == StateExpired {
		return ErrAttemptExpired
	}
	if s.state != StateInProgress {
		return ErrInvalidTransition
	}

	s.answers[questionID] = answer
	return nil
}

// Remaining returns the time left, clamped to zero for display.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress && s.state != StateExpired {
		return 0
	}

	deadline := s.startedAt.Add(time.Duration(s.exam.Duration) * time.Minute)
	remaining := deadline.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Elapsed returns wall-clock time since Start, capped at the exam
// duration once the attempt has expired.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startedAt.IsZero() {
		return 0
	}
	elapsed := s.now().Sub(s.startedAt)
	limit := time.Duration(s.exam.Duration) * time.Minute
	if elapsed > limit {
		return limit
	}
	return elapsed
}

// Exam returns the frozen exam definition.
func (s *Session) Exam() models.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exam
}

// Questions returns the frozen question snapshot.
func (s *Session) Questions() []models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Answers returns a copy of the captured answer map.
func (s *Session) Answers() map[uint]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyAnswersLocked()
}

// BeginSubmit moves InProgress or Expired -> Submitting and hands back the
// answer map as captured at that moment. For an expired attempt that map
// is exactly what was captured before the deadline; no further input was
// accepted.
func (s *Session) BeginSubmit() (map[uint]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkExpiryLocked()
	if s.state != StateInProgress && s.state != StateExpired {
		return nil, ErrInvalidTransition
	}

	s.resumeState = s.state
	s.state = StateSubmitting
	return s.copyAnswersLocked(), nil
}

// CompleteSubmit moves Submitting -> Completed and clears attempt state.
func (s *Session) CompleteSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting {
		return ErrInvalidTransition
	}

	s.state = StateCompleted
	s.questions = nil
	s.answers = make(map[uint]string)
	return nil
}

// FailSubmit returns the session to its pre-submit state after an
// exhausted retry loop, keeping the captured answers so the student can
// resubmit manually.
func (s *Session) FailSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting {
		return ErrInvalidTransition
	}

	s.state = s.resumeState
	return nil
}

func (s *Session) checkExpiryLocked() {
	if s.state != StateInProgress {
		return
	}
	deadline := s.startedAt.Add(time.Duration(s.exam.Duration) * time.Minute)
	if !s.now().Before(deadline) {
		s.state = StateExpired
	}
}

func (s *Session) copyAnswersLocked() map[uint]string {
	out := make(map[uint]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}
