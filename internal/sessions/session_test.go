package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oes-platform/exam-service/internal/models"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func activeExam(duration int) models.Exam {
	return models.Exam{ID: 1, Name: "Math101", Duration: duration, IsActive: true}
}

func startedSession(t *testing.T, clock *fakeClock, duration int) *Session {
	t.Helper()
	s := NewWithClock("student-1", "Ada", clock.Now)
	require.NoError(t, s.Select(activeExam(duration)))
	require.NoError(t, s.Start([]models.Question{
		{ID: 10, Type: models.MultipleChoice, CorrectAnswer: "B", Points: 5},
		{ID: 11, Type: models.ShortAnswer, CorrectAnswer: "Paris", Points: 3},
	}))
	return s
}

func TestSession_HappyPath(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := startedSession(t, clock, 30)

	assert.Equal(t, StateInProgress, s.State())

	require.NoError(t, s.Answer(10, "B"))
	require.NoError(t, s.Answer(11, "Paris"))
	// Overwriting an answer is allowed while in progress.
	require.NoError(t, s.Answer(11, "Lyon"))

	answers, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{10: "B", 11: "Lyon"}, answers)
	assert.Equal(t, StateSubmitting, s.State())

	require.NoError(t, s.CompleteSubmit())
	assert.Equal(t, StateCompleted, s.State())
	assert.Empty(t, s.Answers())
}

func TestSession_SelectRejectsInactiveExam(t *testing.T) {
	s := New("student-1", "Ada")
	err := s.Select(models.Exam{ID: 1, IsActive: false})
	assert.ErrorIs(t, err, ErrExamInactive)
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_InvalidTransitions(t *testing.T) {
	s := New("student-1", "Ada")

	assert.ErrorIs(t, s.Answer(1, "x"), ErrInvalidTransition)
	assert.ErrorIs(t, s.Start(nil), ErrInvalidTransition)
	_, err := s.BeginSubmit()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.CompleteSubmit(), ErrInvalidTransition)
}

func TestSession_RemainingClampsToZero(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := startedSession(t, clock, 30)

	assert.Equal(t, 30*time.Minute, s.Remaining())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 20*time.Minute, s.Remaining())

	clock.Advance(25 * time.Minute)
	assert.Equal(t, time.Duration(0), s.Remaining())
}

func TestSession_ExpiryBlocksFurtherInput(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := startedSession(t, clock, 30)

	require.NoError(t, s.Answer(10, "B"))

	clock.Advance(31 * time.Minute)

	assert.Equal(t, StateExpired, s.State())
	assert.ErrorIs(t, s.Answer(11, "Paris"), ErrAttemptExpired)

	// Submission after expiry carries only the answers captured before
	// the deadline.
	answers, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{10: "B"}, answers)
}

func TestSession_ExpiryAtExactDeadline(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := startedSession(t, clock, 30)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, StateExpired, s.State())
}

func TestSession_FailSubmitPreservesAnswers(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := startedSession(t, clock, 30)

	require.NoError(t, s.Answer(10, "B"))

	_, err := s.BeginSubmit()
	require.NoError(t, err)

	require.NoError(t, s.FailSubmit())
	assert.Equal(t, StateInProgress, s.State())
	assert.Equal(t, map[uint]string{10: "B"}, s.Answers())

	// The retry sees the same answers.
	answers, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{10: "B"}, answers)
}

func TestSession_ElapsedCappedAtDuration(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := startedSession(t, clock, 30)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 10*time.Minute, s.Elapsed())

	clock.Advance(40 * time.Minute)
	assert.Equal(t, 30*time.Minute, s.Elapsed())
}

func TestSession_SnapshotInsulatedFromCallerMutation(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewWithClock("student-1", "Ada", clock.Now)
	require.NoError(t, s.Select(activeExam(30)))

	questions := []models.Question{{ID: 10, CorrectAnswer: "B", Points: 5}}
	require.NoError(t, s.Start(questions))

	// Later edits to the caller's slice must not reach the snapshot.
	questions[0].CorrectAnswer = "C"

	snapshot := s.Questions()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "B", snapshot[0].CorrectAnswer)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get("student-1")
	assert.False(t, ok)

	s := New("student-1", "Ada")
	store.Put("student-1", s)

	got, ok := store.Get("student-1")
	require.True(t, ok)
	assert.Equal(t, s.AttemptID(), got.AttemptID())

	store.Delete("student-1")
	_, ok = store.Get("student-1")
	assert.False(t, ok)
}
