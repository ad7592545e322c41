package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oes-platform/exam-service/internal/cache"
	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
)

// PassThreshold is the fixed pass policy: an attempt passes when it
// scores at least 60% of the exam's total points.
const PassThreshold = 0.6

const (
	leaderboardCacheTTL = 30 * time.Second
	defaultLeaderboardN = 10
)

// ===== VIEW TYPES =====

type LeaderboardRow struct {
	Rank        int     `json:"rank"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	ExamName    string  `json:"exam_name"`
	Score       int     `json:"score"`
	MaxScore    int     `json:"max_score"`
	Percentage  float64 `json:"percentage"`
}

// ExamHistory groups one student's attempts at a single exam.
type ExamHistory struct {
	ExamID       uint             `json:"exam_id"`
	ExamName     string           `json:"exam_name"`
	Best         *models.Result   `json:"best"`
	FirstAttempt time.Time        `json:"first_attempt"`
	LastAttempt  time.Time        `json:"last_attempt"`
	Attempts     []*models.Result `json:"attempts"`
}

type ExamAnalytics struct {
	ExamID        uint        `json:"exam_id"`
	TotalAttempts int         `json:"total_attempts"`
	AverageScore  float64     `json:"average_score"`
	PassRate      float64     `json:"pass_rate"`
	Distribution  map[string]int `json:"distribution"` // decile bucket -> count
}

type Overview struct {
	TotalUsers   int64 `json:"total_users"`
	TotalExams   int64 `json:"total_exams"`
	TotalResults int64 `json:"total_results"`
}

// ===== SERVICE INTERFACE =====

type DashboardService interface {
	Leaderboard(ctx context.Context, examID *uint, limit int) ([]LeaderboardRow, error)
	StudentHistory(ctx context.Context, studentID string) ([]ExamHistory, error)
	Analytics(ctx context.Context, examID uint) (*ExamAnalytics, error)
	Overview(ctx context.Context) (*Overview, error)
	ExportExamResults(ctx context.Context, examID uint) ([]byte, error)
}

type dashboardService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

// Leaderboard ranks results by percentage descending; equal percentages
// keep submission order. Rows come from a short-TTL cache when fresh.
func (s *dashboardService) Leaderboard(ctx context.Context, examID *uint, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = defaultLeaderboardN
	}

	key := leaderboardKey(examID, limit)
	if s.cache != nil {
		var cached []LeaderboardRow
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	results, err := s.repo.Result().List(ctx, repositories.ResultFilters{
		ExamID:    examID,
		OrderBy:   "percentage",
		SortOrder: "desc",
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard results: %w", err)
	}

	rows := make([]LeaderboardRow, 0, len(results))
	for i, r := range results {
		name := r.StudentName
		// Prefer the live display name when the user still resolves;
		// the denormalized copy covers deleted accounts.
		if user, err := s.repo.User().GetByID(ctx, r.StudentID); err == nil {
			name = user.FullName
		}
		rows = append(rows, LeaderboardRow{
			Rank:        i + 1,
			StudentID:   r.StudentID,
			StudentName: name,
			ExamName:    r.ExamName,
			Score:       r.Score,
			MaxScore:    r.MaxScore,
			Percentage:  r.Percentage,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rows, leaderboardCacheTTL); err != nil {
			s.logger.Warn("Failed to cache leaderboard", "key", key, "error", err)
		}
	}

	return rows, nil
}

// StudentHistory groups a student's results by exam. The headline per
// group is the best attempt by score; first/latest come from the
// submission timestamps.
func (s *dashboardService) StudentHistory(ctx context.Context, studentID string) ([]ExamHistory, error) {
	results, err := s.repo.Result().GetByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student results: %w", err)
	}

	groups := make(map[uint]*ExamHistory)
	order := make([]uint, 0)

	for _, r := range results {
		g, ok := groups[r.ExamID]
		if !ok {
			g = &ExamHistory{
				ExamID:       r.ExamID,
				ExamName:     r.ExamName,
				Best:         r,
				FirstAttempt: r.SubmittedAt,
				LastAttempt:  r.SubmittedAt,
			}
			groups[r.ExamID] = g
			order = append(order, r.ExamID)
		}

		g.Attempts = append(g.Attempts, r)
		if r.Score > g.Best.Score {
			g.Best = r
		}
		if r.SubmittedAt.Before(g.FirstAttempt) {
			g.FirstAttempt = r.SubmittedAt
		}
		if r.SubmittedAt.After(g.LastAttempt) {
			g.LastAttempt = r.SubmittedAt
		}
	}

	histories := make([]ExamHistory, 0, len(order))
	for _, examID := range order {
		histories = append(histories, *groups[examID])
	}
	return histories, nil
}

// Analytics aggregates all attempts of one exam: average score, pass
// rate against the fixed 60% threshold, and a decile distribution of
// percentages.
func (s *dashboardService) Analytics(ctx context.Context, examID uint) (*ExamAnalytics, error) {
	results, err := s.repo.Result().List(ctx, repositories.ResultFilters{ExamID: &examID})
	if err != nil {
		return nil, fmt.Errorf("failed to list exam results: %w", err)
	}

	analytics := &ExamAnalytics{
		ExamID:       examID,
		Distribution: make(map[string]int),
	}
	if len(results) == 0 {
		return analytics, nil
	}

	var scoreSum, passed int
	for _, r := range results {
		scoreSum += r.Score
		if r.MaxScore > 0 && float64(r.Score) >= PassThreshold*float64(r.MaxScore) {
			passed++
		}
		analytics.Distribution[bucketFor(r.Percentage)]++
	}

	analytics.TotalAttempts = len(results)
	analytics.AverageScore = float64(scoreSum) / float64(len(results))
	analytics.PassRate = float64(passed) / float64(len(results)) * 100

	return analytics, nil
}

func (s *dashboardService) Overview(ctx context.Context) (*Overview, error) {
	users, err := s.repo.User().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	exams, err := s.repo.Exam().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count exams: %w", err)
	}
	results, err := s.repo.Result().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	return &Overview{
		TotalUsers:   users,
		TotalExams:   exams,
		TotalResults: results,
	}, nil
}

// ExportExamResults renders every attempt of one exam as an xlsx
// workbook for offline review.
func (s *dashboardService) ExportExamResults(ctx context.Context, examID uint) ([]byte, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	results, err := s.repo.Result().List(ctx, repositories.ResultFilters{
		ExamID:    &examID,
		OrderBy:   "percentage",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Rank", "Student", "Score", "Max Score", "Percentage", "Time Taken (s)", "Submitted At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, r := range results {
		row := i + 2
		values := []interface{}{
			i + 1,
			r.StudentName,
			r.Score,
			r.MaxScore,
			r.Percentage,
			r.TimeTakenSeconds,
			r.SubmittedAt.Format(time.RFC3339),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Exported exam results",
		"exam_id", examID,
		"exam_name", exam.Name,
		"rows", len(results))

	return buf.Bytes(), nil
}

func leaderboardKey(examID *uint, limit int) string {
	if examID != nil {
		return fmt.Sprintf("leaderboard:exam:%d:top:%d", *examID, limit)
	}
	return fmt.Sprintf("leaderboard:all:top:%d", limit)
}

func bucketFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "90-100"
	case percentage >= 80:
		return "80-89"
	case percentage >= 70:
		return "70-79"
	case percentage >= 60:
		return "60-69"
	case percentage >= 50:
		return "50-59"
	default:
		return "0-49"
	}
}
