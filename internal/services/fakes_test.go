package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
	"github.com/oes-platform/exam-service/internal/utils"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *utils.Validator {
	return utils.NewValidator()
}

// fakeRepository is an in-memory repositories.Repository. Submit failures
// can be injected to exercise the retry path.
type fakeRepository struct {
	mu sync.Mutex

	exams     map[uint]*models.Exam
	questions map[uint]*models.Question
	results   map[string]*models.Result // keyed by attempt id
	users     map[string]*models.User

	nextExamID     uint
	nextQuestionID uint
	nextResultID   uint

	// submitFailures makes the next N Submit calls fail.
	submitFailures int
	submitCalls    int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		exams:     make(map[uint]*models.Exam),
		questions: make(map[uint]*models.Question),
		results:   make(map[string]*models.Result),
		users:     make(map[string]*models.User),
	}
}

func (f *fakeRepository) Exam() repositories.ExamRepository         { return (*fakeExamRepo)(f) }
func (f *fakeRepository) Question() repositories.QuestionRepository { return (*fakeQuestionRepo)(f) }
func (f *fakeRepository) Result() repositories.ResultRepository     { return (*fakeResultRepo)(f) }
func (f *fakeRepository) User() repositories.UserRepository         { return (*fakeUserRepo)(f) }

// ===== EXAMS =====

type fakeExamRepo fakeRepository

func (f *fakeExamRepo) Create(_ context.Context, exam *models.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextExamID++
	exam.ID = f.nextExamID
	exam.TotalQuestions = 0
	exam.TotalPoints = 0
	exam.CreatedAt = time.Now()
	c := *exam
	f.exams[exam.ID] = &c
	return nil
}

func (f *fakeExamRepo) GetByID(_ context.Context, id uint) (*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *exam
	return &c, nil
}

func (f *fakeExamRepo) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, _ := (*fakeQuestionRepo)(f).ListByExam(ctx, id)
	exam.Questions = questions
	return exam, nil
}

func (f *fakeExamRepo) List(_ context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Exam
	for _, exam := range f.exams {
		if filters.ActiveOnly && !exam.IsActive {
			continue
		}
		c := *exam
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeExamRepo) Update(_ context.Context, id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["name"]; ok {
		exam.Name = v.(string)
	}
	if v, ok := fields["description"]; ok {
		desc := v.(string)
		exam.Description = &desc
	}
	if v, ok := fields["duration"]; ok {
		exam.Duration = v.(int)
	}
	return nil
}

func (f *fakeExamRepo) SetActive(_ context.Context, id uint, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	exam.IsActive = active
	return nil
}

func (f *fakeExamRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.exams)), nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo fakeRepository

func (f *fakeQuestionRepo) Add(_ context.Context, examID uint, question *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[examID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.nextQuestionID++
	question.ID = f.nextQuestionID
	question.ExamID = examID
	c := *question
	f.questions[question.ID] = &c
	exam.TotalQuestions++
	exam.TotalPoints += question.Points
	return nil
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, examID, questionID uint) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[questionID]
	if !ok || q.ExamID != examID {
		return nil, gorm.ErrRecordNotFound
	}
	c := *q
	return &c, nil
}

func (f *fakeQuestionRepo) Delete(_ context.Context, examID, questionID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[questionID]
	if !ok || q.ExamID != examID {
		return gorm.ErrRecordNotFound
	}
	exam, ok := f.exams[examID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.questions, questionID)
	exam.TotalQuestions--
	exam.TotalPoints -= q.Points
	return nil
}

func (f *fakeQuestionRepo) ListByExam(_ context.Context, examID uint) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuestionNumber != out[j].QuestionNumber {
			return out[i].QuestionNumber < out[j].QuestionNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeQuestionRepo) RecomputeExamCounters(_ context.Context, examID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[examID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	exam.TotalQuestions = 0
	exam.TotalPoints = 0
	for _, q := range f.questions {
		if q.ExamID == examID {
			exam.TotalQuestions++
			exam.TotalPoints += q.Points
		}
	}
	return nil
}

// ===== RESULTS =====

type fakeResultRepo fakeRepository

func (f *fakeResultRepo) Submit(_ context.Context, result *models.Result) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitCalls++
	if f.submitFailures > 0 {
		f.submitFailures--
		return false, fmt.Errorf("store unavailable")
	}

	if existing, ok := f.results[result.AttemptID]; ok {
		*result = *existing
		return false, nil
	}

	user, ok := f.users[result.StudentID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}

	f.nextResultID++
	result.ID = f.nextResultID
	c := *result
	f.results[result.AttemptID] = &c
	user.ExamsTaken++
	user.TotalPoints += result.Score
	return true, nil
}

func (f *fakeResultRepo) GetByID(_ context.Context, id uint) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResultRepo) GetByAttemptID(_ context.Context, attemptID string) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[attemptID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeResultRepo) List(_ context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Result
	for _, r := range f.results {
		if filters.StudentID != nil && r.StudentID != *filters.StudentID {
			continue
		}
		if filters.ExamID != nil && r.ExamID != *filters.ExamID {
			continue
		}
		c := *r
		out = append(out, &c)
	}

	less := func(i, j int) bool {
		var primary bool
		var equal bool
		switch filters.OrderBy {
		case "score":
			primary = out[i].Score > out[j].Score
			equal = out[i].Score == out[j].Score
		case "submitted_at":
			primary = out[i].SubmittedAt.Before(out[j].SubmittedAt)
			equal = out[i].SubmittedAt.Equal(out[j].SubmittedAt)
		default:
			primary = out[i].Percentage > out[j].Percentage
			equal = out[i].Percentage == out[j].Percentage
		}
		if !equal {
			if filters.SortOrder == "asc" && filters.OrderBy != "submitted_at" {
				return !primary
			}
			return primary
		}
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	}
	sort.SliceStable(out, less)

	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (f *fakeResultRepo) GetByStudent(_ context.Context, studentID string) ([]*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Result
	for _, r := range f.results {
		if r.StudentID == studentID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeResultRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.results)), nil
}

// ===== USERS =====

type fakeUserRepo fakeRepository

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["full_name"]; ok {
		u.FullName = v.(string)
	}
	if v, ok := fields["role"]; ok {
		u.Role = v.(models.UserRole)
	}
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, loginTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLoginAt = &loginTime
	return nil
}

func (f *fakeUserRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}
